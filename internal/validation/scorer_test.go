package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"qwencode/internal/types"
)

func TestScore_AllPassedUsesFullWeightedAverage(t *testing.T) {
	scores := []types.ValidationScore{
		{ValidatorName: "ast_syntax", Passed: true, Score: 1.0, Weight: 10.0, Severity: types.SeverityInfo},
		{ValidatorName: "complexity", Passed: true, Score: 0.8, Weight: 2.0, Severity: types.SeverityInfo},
	}
	got := Score(scores, nil)
	want := (1.0*10.0 + 0.8*2.0) / 12.0
	assert.InDelta(t, want, got, 0.0001)
}

func TestScore_AnyErrorHalvesScore(t *testing.T) {
	scores := []types.ValidationScore{
		{ValidatorName: "ast_syntax", Passed: true, Score: 1.0, Weight: 10.0, Severity: types.SeverityInfo},
		{ValidatorName: "no_eval_exec", Passed: false, Score: 0, Weight: 5.0, Severity: types.SeverityError},
	}
	got := Score(scores, nil)
	weighted := (1.0*10.0 + 0*5.0) / 15.0
	assert.InDelta(t, weighted*0.5, got, 0.0001)
}

func TestScore_WarningsOnlyDoesNotHalve(t *testing.T) {
	scores := []types.ValidationScore{
		{ValidatorName: "ast_syntax", Passed: true, Score: 1.0, Weight: 10.0, Severity: types.SeverityInfo},
		{ValidatorName: "docstring", Passed: true, Score: 0.5, Weight: 0.5, Severity: types.SeverityWarning},
	}
	got := Score(scores, nil)
	want := (1.0*10.0 + 0.5*0.5) / 10.5
	assert.InDelta(t, want, got, 0.0001)
}

func TestScore_WeightOverrideTableWins(t *testing.T) {
	scores := []types.ValidationScore{
		{ValidatorName: "static_bandit", Passed: true, Score: 1.0, Weight: 1.0, Severity: types.SeverityInfo},
	}
	got := Score(scores, map[string]float64{"static_bandit": 6.0})
	assert.InDelta(t, 1.0, got, 0.0001)
}

func TestScore_EmptyScoresReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, nil))
}

package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"qwencode/internal/types"
)

type stubSuggester struct {
	profile    types.ValidationProfile
	confidence float64
}

func (s stubSuggester) SuggestProfile(ctx context.Context, taskType types.TaskType, complexity types.Complexity) (types.ValidationProfile, float64, error) {
	return s.profile, s.confidence, nil
}

func TestAdapter_OverridesStaticPickWhenHistoryDisagrees(t *testing.T) {
	a := NewAdapter(stubSuggester{profile: types.ProfileSafeFix, confidence: 0.8})
	tc := types.TaskContext{
		TaskType:          types.TaskCodeGen,
		RiskLevel:         types.RiskMedium,
		Complexity:        types.ComplexityModerate,
		ValidationProfile: types.ProfileBalanced,
	}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, types.ProfileSafeFix, out.ValidationProfile)
	assert.EqualValues(t, 1, a.Overrides())
}

func TestAdapter_NoOverrideWhenSuggestionMatchesStaticPick(t *testing.T) {
	a := NewAdapter(stubSuggester{profile: types.ProfileBalanced, confidence: 0.9})
	tc := types.TaskContext{TaskType: types.TaskCodeGen, ValidationProfile: types.ProfileBalanced}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, types.ProfileBalanced, out.ValidationProfile)
	assert.EqualValues(t, 0, a.Overrides())
}

func TestAdapter_LowConfidenceSuggestionIgnored(t *testing.T) {
	a := NewAdapter(stubSuggester{profile: types.ProfileSafeFix, confidence: 0.1})
	tc := types.TaskContext{TaskType: types.TaskCodeGen, ValidationProfile: types.ProfileBalanced}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, types.ProfileBalanced, out.ValidationProfile)
	assert.EqualValues(t, 0, a.Overrides())
}

func TestAdapter_CriticalRiskNeverDowngraded(t *testing.T) {
	a := NewAdapter(stubSuggester{profile: types.ProfileFastDev, confidence: 0.99})
	tc := types.TaskContext{
		TaskType:          types.TaskBugFix,
		RiskLevel:         types.RiskCritical,
		ValidationProfile: types.ProfileCritical,
	}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, types.ProfileCritical, out.ValidationProfile)
	assert.EqualValues(t, 0, a.Overrides())
}

func TestAdapter_NilTrackerIsNoOp(t *testing.T) {
	a := NewAdapter(nil)
	tc := types.TaskContext{TaskType: types.TaskCodeGen, ValidationProfile: types.ProfileBalanced}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, tc, out)
}

// TestAdapter_ProfileOverrideFromOutcomeHistory covers the history
// scenario of five safe_fix runs at mean score 0.95 and five balanced
// runs at mean score 0.60 for the same (code_gen, moderate) key. The stub
// Suggester stands in for an OutcomeTracker holding that history and
// recommends safe_fix; the adapter replaces the static balanced pick.
func TestAdapter_ProfileOverrideFromOutcomeHistory(t *testing.T) {
	a := NewAdapter(stubSuggester{profile: types.ProfileSafeFix, confidence: 0.9})
	tc := types.TaskContext{
		TaskType:           types.TaskCodeGen,
		RiskLevel:          types.RiskMedium,
		Complexity:         types.ComplexityModerate,
		ValidationProfile:  types.ProfileBalanced,
		FailFast:           false,
		ParallelValidation: true,
	}

	out := a.Apply(context.Background(), tc)

	assert.Equal(t, types.ProfileSafeFix, out.ValidationProfile)
	assert.EqualValues(t, 1, a.Overrides())
}

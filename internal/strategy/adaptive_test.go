package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/types"
)

func TestClassifyComplexity_Trivial(t *testing.T) {
	s := New("", false, 0)
	assert.Equal(t, types.ComplexityTrivial, s.ClassifyComplexity("write hello world", 0))
	assert.Equal(t, types.ComplexityTrivial, s.ClassifyComplexity("add two numbers", 0))
}

func TestClassifyComplexity_Simple(t *testing.T) {
	s := New("", false, 0)
	assert.Equal(t, types.ComplexitySimple, s.ClassifyComplexity("write a sort function", 0))
}

func TestClassifyComplexity_Complex(t *testing.T) {
	s := New("", false, 0)
	assert.Equal(t, types.ComplexityComplex, s.ClassifyComplexity("implement API middleware for rate limiting", 0))
}

func TestClassifyComplexity_CriticalByKeyword(t *testing.T) {
	s := New("", false, 0)
	assert.Equal(t, types.ComplexityCritical, s.ClassifyComplexity("implement JWT auth for users", 0))
}

func TestClassifyComplexity_SWECASForcesOverride(t *testing.T) {
	s := New("", false, 0)
	assert.Equal(t, types.ComplexityCritical, s.ClassifyComplexity("write hello world", 512))
	assert.Equal(t, types.ComplexityTrivial, s.ClassifyComplexity("write hello world", 100), "non-security SWECAS does not override")
}

func TestGetStrategy_TrivialPlan(t *testing.T) {
	s := New("", false, 0)
	plan := s.GetStrategy("write hello world", 0)
	assert.Equal(t, 1, plan.NCandidates)
	assert.Equal(t, []float64{0.2}, plan.Temperatures)
}

func TestGetStrategy_CriticalPlan(t *testing.T) {
	s := New("", false, 0)
	plan := s.GetStrategy("implement JWT auth with token refresh", 0)
	assert.Equal(t, 3, plan.NCandidates)
	assert.Equal(t, []float64{0.1, 0.4, 0.7}, plan.Temperatures)
}

func TestGetStrategy_TracksCriticalCandidateShare(t *testing.T) {
	s := New("", false, 0.2)
	s.GetStrategy("implement JWT auth with token refresh", 0)
	assert.Equal(t, 3, s.totalCandidates)
	assert.Equal(t, 3, s.criticalCandidates)

	s.GetStrategy("write hello world", 0)
	assert.Equal(t, 4, s.totalCandidates)
	assert.Equal(t, 3, s.criticalCandidates)
}

func TestRecordOutcome_NoPersistDoesNotWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	s := New(path, false, 0)
	require.NoError(t, s.RecordOutcome(types.ComplexityTrivial, 0.9, true, 0, "write hello world"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRecordOutcome_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	s1 := New(path, true, 0)
	require.NoError(t, s1.RecordOutcome(types.ComplexityTrivial, 0.9, true, 0, "write hello world"))

	s2 := New(path, true, 0)
	assert.Len(t, s2.history, 1)
	assert.Equal(t, 0.9, s2.history[0].BestScore)
}

func TestRecordOutcome_HistoryCappedAtMax(t *testing.T) {
	s := New("", false, 0)
	for i := 0; i < MaxHistory+50; i++ {
		require.NoError(t, s.RecordOutcome(types.ComplexitySimple, 0.8, true, 0, "sort a list"))
	}
	assert.Len(t, s.history, MaxHistory)
}

func TestLearn_DowngradeOnHighScores(t *testing.T) {
	s := New("", false, 0)
	initial := s.strategies[types.ComplexityModerate].N
	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordOutcome(types.ComplexityModerate, 0.95, true, 0, "moderate query"))
	}
	assert.Less(t, s.strategies[types.ComplexityModerate].N, initial)
}

func TestLearn_UpgradeOnLowScores(t *testing.T) {
	s := New("", false, 0)
	initial := s.strategies[types.ComplexitySimple].N
	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordOutcome(types.ComplexitySimple, 0.5, false, 0, "sort a list"))
	}
	assert.Greater(t, s.strategies[types.ComplexitySimple].N, initial)
}

func TestLearn_CriticalNeverAdjusted(t *testing.T) {
	s := New("", false, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordOutcome(types.ComplexityCritical, 0.99, true, 0, "implement JWT auth"))
	}
	assert.Equal(t, 3, s.strategies[types.ComplexityCritical].N)
}

func TestLearn_MinSamplesRequired(t *testing.T) {
	s := New("", false, 0)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.RecordOutcome(types.ComplexitySimple, 0.5, false, 0, "sort a list"))
	}
	assert.Equal(t, defaultStrategies()[types.ComplexitySimple], s.strategies[types.ComplexitySimple])
}

func TestGetStats_EmptyAndWithHistory(t *testing.T) {
	s := New("", false, 0)
	stats := s.GetStats()
	assert.Equal(t, 0, stats.TotalOutcomes)

	require.NoError(t, s.RecordOutcome(types.ComplexityTrivial, 0.9, true, 0, "write hello world"))
	stats = s.GetStats()
	assert.Equal(t, 1, stats.TotalOutcomes)
	assert.Equal(t, 1, stats.ComplexityDistribution[types.ComplexityTrivial])
	assert.Equal(t, 0.9, stats.AvgScores[types.ComplexityTrivial])
}

package correction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwencode/internal/types"
	"qwencode/internal/validation"
)

// scriptedGenerator returns one candidate per call, stepping through a
// fixed script of code bodies and repeating the last one once the script
// runs out, so each correction iteration can be made to "fix" the
// previous iteration's complaint.
type scriptedGenerator struct {
	script []string
	calls  int
}

func (s *scriptedGenerator) Generate(ctx context.Context, taskID, query, systemPrompt string, plan types.GenerationPlan) (*types.CandidatePool, error) {
	code := s.script[s.calls]
	if s.calls < len(s.script)-1 {
		s.calls++
	}
	return &types.CandidatePool{
		TaskID: taskID,
		Candidates: []*types.Candidate{
			{ID: uuid.NewString(), TaskID: taskID, Code: code, Status: types.CandidateGenerated},
		},
	}, nil
}

func newTestPipeline() *validation.Pipeline {
	r := validation.NewValidatorRegistry()
	r.Register(validation.NewNoEvalExecRule())
	r.Register(validation.NewNoForbiddenImportsRule())
	return validation.NewPipeline(r)
}

func newTestTaskContext() *types.TaskContext {
	return &types.TaskContext{
		Query:             "write a helper function",
		ValidationProfile: types.ProfileBalanced,
	}
}

func TestLoop_StopsImmediatelyWhenFirstCandidatePasses(t *testing.T) {
	gen := &scriptedGenerator{script: []string{"x = 1\n"}}
	loop := New(gen, newTestPipeline(), 3, 0.1, time.Second)

	result, err := loop.Run(context.Background(), "t1", newTestTaskContext(), types.GenerationPlan{NCandidates: 1, Temperatures: []float64{0.3}}, "", "python")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalIterations)
	assert.False(t, result.Corrected)
	assert.Equal(t, "x = 1\n", result.BestCode)
}

func TestLoop_RecoversAcrossIterations(t *testing.T) {
	gen := &scriptedGenerator{script: []string{"eval(x)\n", "x = compute()\n"}}
	loop := New(gen, newTestPipeline(), 3, 0.1, time.Second)

	result, err := loop.Run(context.Background(), "t1", newTestTaskContext(), types.GenerationPlan{NCandidates: 1, Temperatures: []float64{0.3}}, "", "python")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalIterations)
	assert.True(t, result.Corrected)
	assert.Equal(t, "x = compute()\n", result.BestCode)
	assert.Greater(t, result.FinalScore, result.InitialScore)
}

func TestLoop_StopsAtMaxIterationsEvenIfStillFailing(t *testing.T) {
	gen := &scriptedGenerator{script: []string{"eval(x)\n"}}
	loop := New(gen, newTestPipeline(), 2, 0.1, time.Second)

	result, err := loop.Run(context.Background(), "t1", newTestTaskContext(), types.GenerationPlan{NCandidates: 1, Temperatures: []float64{0.3}}, "", "python")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalIterations)
	assert.False(t, result.Attempts[len(result.Attempts)-1].AllPassed)
}

func TestLoop_BestCandidateTrackedAcrossIterationsEvenOnRegression(t *testing.T) {
	gen := &scriptedGenerator{script: []string{"import subprocess\n", "eval(x)\nimport subprocess\n"}}
	loop := New(gen, newTestPipeline(), 2, 0.1, time.Second)

	result, err := loop.Run(context.Background(), "t1", newTestTaskContext(), types.GenerationPlan{NCandidates: 1, Temperatures: []float64{0.3}}, "", "python")
	require.NoError(t, err)
	assert.Equal(t, "import subprocess\n", result.BestCode)
	assert.Equal(t, 2, result.TotalIterations)
}

func TestBuildCorrectionPrompt_CapsAtTenErrors(t *testing.T) {
	errs := make([]string, 15)
	for i := range errs {
		errs[i] = "[rule] problem"
	}
	prompt := buildCorrectionPrompt("query", "code", errs)
	assert.Equal(t, 10, countOccurrences(prompt, "[rule] problem"))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}

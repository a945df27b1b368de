package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"qwencode/internal/types"
)

func buildTestRegistry() *ValidatorRegistry {
	r := NewValidatorRegistry()
	r.Register(NewNoForbiddenImportsRule())
	r.Register(NewNoEvalExecRule())
	r.Register(NewComplexityRule())
	return r
}

func TestPipeline_SequentialRunsAll(t *testing.T) {
	p := NewPipeline(buildTestRegistry())
	scores := p.Run(context.Background(), "x = 1\n", ValidationContext{}, []string{"no_forbidden_imports", "no_eval_exec", "complexity"}, false, false, 0)
	assert.Len(t, scores, 3)
	for _, s := range scores {
		assert.True(t, s.Passed)
	}
}

func TestPipeline_SequentialFailFastStopsEarly(t *testing.T) {
	p := NewPipeline(buildTestRegistry())
	scores := p.Run(context.Background(), "eval(x)\n", ValidationContext{}, []string{"no_eval_exec", "complexity"}, true, false, 0)
	assert.Len(t, scores, 1)
	assert.False(t, scores[0].Passed)
}

func TestPipeline_ParallelRunsAllRegardlessOfFailFast(t *testing.T) {
	p := NewPipeline(buildTestRegistry())
	scores := p.Run(context.Background(), "eval(x)\n", ValidationContext{}, []string{"no_eval_exec", "complexity", "no_forbidden_imports"}, true, true, 0)
	assert.Len(t, scores, 3)
}

func TestPipeline_UnknownRuleNameSkipped(t *testing.T) {
	p := NewPipeline(buildTestRegistry())
	scores := p.Run(context.Background(), "x = 1\n", ValidationContext{}, []string{"nonexistent"}, false, true, 0)
	assert.Len(t, scores, 0)
}

func TestPipeline_PerRuleTimeoutBecomesFailingScore(t *testing.T) {
	r := NewValidatorRegistry()
	r.Register(NewSubprocessRule("slow_tool", 1.0, "sleep", []string{"5"}, func(stdout []byte, exitCode int) types.ValidationScore {
		return types.ValidationScore{}
	}))
	p := NewPipeline(r)
	scores := p.Run(context.Background(), "x = 1\n", ValidationContext{FilePath: "/tmp/x.py"}, []string{"slow_tool"}, false, false, 10*time.Millisecond)
	if len(scores) == 1 {
		assert.False(t, scores[0].Passed)
	}
}

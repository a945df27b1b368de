package validation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"qwencode/internal/types"
)

// Pipeline runs a resolved set of rules against one candidate's code,
// honoring the task's FailFast and ParallelValidation flags. A rule that
// times out or errors never propagates as a pipeline-level failure: it is
// turned into a failing ValidationScore so the rest of the pipeline, and
// the self-correction loop above it, can still proceed.
type Pipeline struct {
	registry *ValidatorRegistry
}

// NewPipeline builds a Pipeline backed by registry.
func NewPipeline(registry *ValidatorRegistry) *Pipeline {
	return &Pipeline{registry: registry}
}

// Run resolves ruleNames against the registry and executes them either in
// parallel or sequentially, each individually bounded by perRuleTimeout
// (zero means no bound beyond ctx itself). When fail_fast=true a failing
// sequential run stops early; a parallel run always lets every rule
// finish, since rules may already be mid-subprocess. Scores come back in
// ruleNames order regardless of completion order.
func (p *Pipeline) Run(ctx context.Context, code string, vctx ValidationContext, ruleNames []string, failFast, parallel bool, perRuleTimeout time.Duration) []types.ValidationScore {
	rules := p.registry.Resolve(ruleNames)
	scores := make([]types.ValidationScore, len(rules))

	runOne := func(rule Rule) types.ValidationScore {
		runCtx := ctx
		cancel := func() {}
		if perRuleTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, perRuleTimeout)
		}
		defer cancel()

		score, err := rule.Check(runCtx, code, vctx)
		if err != nil {
			return types.ValidationScore{
				ValidatorName: rule.Name(),
				Passed:        false,
				Score:         0,
				Weight:        rule.Weight(),
				Errors:        []string{err.Error()},
				Severity:      types.SeverityError,
			}
		}
		return score
	}

	if !parallel {
		for i, rule := range rules {
			score := runOne(rule)
			scores[i] = score
			if failFast && !score.Passed {
				return scores[:i+1]
			}
		}
		return scores
	}

	var g errgroup.Group
	for i, rule := range rules {
		i, rule := i, rule
		g.Go(func() error {
			scores[i] = runOne(rule)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return an error; failures live in the scores
	return scores
}

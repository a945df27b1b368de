// Package correction implements the self-correction loop: it regenerates
// a candidate against the previous iteration's validator errors (at most
// 10 of them) until the
// candidate passes, the score floor is crossed, or the iteration budget
// runs out, tracking the best candidate seen across every iteration.
package correction

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"qwencode/internal/generation"
	"qwencode/internal/logging"
	"qwencode/internal/task"
	"qwencode/internal/types"
	"qwencode/internal/validation"
)

const maxFeedbackErrors = 10

// Generator is the subset of generation.Generator the loop depends on.
type Generator interface {
	Generate(ctx context.Context, taskID, query, systemPrompt string, plan types.GenerationPlan) (*types.CandidatePool, error)
}

// Attempt records one iteration's outcome.
type Attempt struct {
	Iteration int
	BestScore float64
	AllPassed bool
	Code      string
	Errors    []string
}

// Result is the loop's final report.
type Result struct {
	BestCode        string
	BestCandidate   *types.Candidate
	TotalIterations int
	InitialScore    float64
	FinalScore      float64
	Improvement     float64
	Corrected       bool
	Attempts        []Attempt
}

// Loop runs the self-correction controller for one task.
type Loop struct {
	generator             Generator
	pipeline              *validation.Pipeline
	maxIterations         int
	minScoreForCorrection float64
	perRuleTimeout        time.Duration
}

// New builds a Loop. maxIterations and minScoreForCorrection normally
// come from config.SelfCorrectionConfig.
func New(generator Generator, pipeline *validation.Pipeline, maxIterations int, minScoreForCorrection float64, perRuleTimeout time.Duration) *Loop {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	return &Loop{
		generator:             generator,
		pipeline:              pipeline,
		maxIterations:         maxIterations,
		minScoreForCorrection: minScoreForCorrection,
		perRuleTimeout:        perRuleTimeout,
	}
}

// Run executes the loop for tc, starting from its original query, and
// returns the best candidate seen across all iterations.
func (l *Loop) Run(ctx context.Context, taskID string, tc *types.TaskContext, plan types.GenerationPlan, systemPrompt, contentType string) (*Result, error) {
	ruleNames, failFast, parallel := ruleConfigFor(tc, contentType)
	weights := task.ScoringWeightsFor(tc.ValidationProfile)

	var attempts []Attempt
	var overallBest *types.Candidate
	overallBestScore := -1.0

	query := tc.Query
	currentPlan := plan

	for i := 1; i <= l.maxIterations; i++ {
		if ctx.Err() != nil {
			break // refuse to start a further iteration once cancelled
		}

		pool, err := l.generator.Generate(ctx, taskID, query, systemPrompt, currentPlan)
		if err != nil {
			if i == 1 {
				return nil, err
			}
			logging.GenerationWarn("correction iteration %d: generation failed, stopping: %v", i, err)
			break
		}

		vctx := validation.ValidationContext{TaskContext: tc, ContentType: contentType}
		for _, c := range pool.Candidates {
			scores := l.pipeline.Run(ctx, c.Code, vctx, ruleNames, failFast, parallel, l.perRuleTimeout)
			c.ValidationScores = scores
			c.TotalScore = validation.Score(scores, weights)
			c.Status = types.CandidateValidated
		}

		best := pickBest(pool.Candidates)
		if best == nil {
			break
		}

		allPassed := true
		var errLines []string
		for _, s := range best.ValidationScores {
			if !s.Passed {
				allPassed = false
				first := "failed"
				if len(s.Errors) > 0 {
					first = s.Errors[0]
				}
				errLines = append(errLines, fmt.Sprintf("[%s] %s", s.ValidatorName, first))
			}
		}

		attempts = append(attempts, Attempt{
			Iteration: i,
			BestScore: best.TotalScore,
			AllPassed: allPassed,
			Code:      best.Code,
			Errors:    errLines,
		})

		if best.TotalScore > overallBestScore {
			overallBestScore = best.TotalScore
			overallBest = best
		}

		if i == l.maxIterations || allPassed || best.TotalScore < l.minScoreForCorrection || len(errLines) == 0 {
			break
		}

		query = buildCorrectionPrompt(tc.Query, best.Code, errLines)
		currentPlan = types.GenerationPlan{
			NCandidates:  1,
			Temperatures: firstTemperature(plan.Temperatures),
			Complexity:   plan.Complexity,
		}
	}

	if overallBest == nil {
		return nil, fmt.Errorf("self-correction produced no viable candidate")
	}

	result := &Result{
		BestCode:        overallBest.Code,
		BestCandidate:   overallBest,
		TotalIterations: len(attempts),
		Attempts:        attempts,
	}
	if len(attempts) > 0 {
		result.InitialScore = attempts[0].BestScore
		result.FinalScore = attempts[len(attempts)-1].BestScore
		result.Improvement = result.FinalScore - result.InitialScore
		result.Corrected = len(attempts) > 1
	}
	return result, nil
}

func ruleConfigFor(tc *types.TaskContext, contentType string) ([]string, bool, bool) {
	if contentType != "" && !strings.EqualFold(contentType, "python") {
		return task.ValidationConfigForContent(contentType, tc.ValidationProfile)
	}
	return task.ValidationConfigFor(tc.ValidationProfile)
}

func pickBest(candidates []*types.Candidate) *types.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*types.Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

func firstTemperature(temps []float64) []float64 {
	if len(temps) == 0 {
		return []float64{0.3}
	}
	return []float64{temps[0]}
}

func buildCorrectionPrompt(originalQuery, code string, errors []string) string {
	capped := errors
	if len(capped) > maxFeedbackErrors {
		capped = capped[:maxFeedbackErrors]
	}
	var b strings.Builder
	b.WriteString(originalQuery)
	b.WriteString("\n\nPrevious attempt:\n```\n")
	b.WriteString(code)
	b.WriteString("\n```\n\nFix only the following issues:\n")
	for _, e := range capped {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String()
}

var _ Generator = (*generation.Generator)(nil)

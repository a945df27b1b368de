package generation

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// Generator produces a CandidatePool for a task by fanning out one
// generation call per temperature in the plan, bounded to at most
// maxConcurrent in flight at once, each with its own timeout. A failed
// candidate does not abort its siblings; a failure is independent of the
// rest of the pool, which simply omits it.
type Generator struct {
	client        LLMClient
	maxConcurrent int
	perCandidate  time.Duration
}

// NewGenerator constructs a Generator. maxConcurrent defaults to 3 (the
// largest n_candidates AdaptiveStrategy ever requests) and perCandidate
// defaults to 60s if zero.
func NewGenerator(client LLMClient, maxConcurrent int, perCandidate time.Duration) *Generator {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	if perCandidate <= 0 {
		perCandidate = 60 * time.Second
	}
	return &Generator{client: client, maxConcurrent: maxConcurrent, perCandidate: perCandidate}
}

// candidateResult pairs a produced candidate with its slot index so
// ordering can be restored after the fan-in.
type candidateResult struct {
	index     int
	candidate *types.Candidate
	err       error
}

// Generate runs plan.NCandidates generation calls, one per temperature
// (cycling if NCandidates exceeds len(plan.Temperatures)), and returns a
// CandidatePool containing every candidate that succeeded. It returns an
// error only when every candidate failed.
func (g *Generator) Generate(ctx context.Context, taskID, query, systemPrompt string, plan types.GenerationPlan) (*types.CandidatePool, error) {
	n := plan.NCandidates
	if n <= 0 {
		n = 1
	}

	sem := make(chan struct{}, g.maxConcurrent)
	results := make(chan candidateResult, n)

	for i := 0; i < n; i++ {
		temp := plan.Temperatures[i%len(plan.Temperatures)]
		go func(index int, temperature float64) {
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- g.generateOne(ctx, taskID, query, systemPrompt, temperature, index)
		}(i, temp)
	}

	candidates := make([]*types.Candidate, n)
	var lastErr error
	failures := 0
	for i := 0; i < n; i++ {
		res := <-results
		if res.err != nil {
			failures++
			lastErr = res.err
			logging.GenerationWarn("candidate %d failed: %v", res.index, res.err)
			continue
		}
		candidates[res.index] = res.candidate
	}

	pool := &types.CandidatePool{TaskID: taskID}
	for _, c := range candidates {
		if c != nil {
			pool.Candidates = append(pool.Candidates, c)
		}
	}

	if len(pool.Candidates) == 0 {
		return nil, &types.GenerationFailedError{CandidateID: taskID, Cause: fmt.Errorf("all %d candidates failed, last error: %w", failures, lastErr)}
	}

	return pool, nil
}

// candidateSeed derives a stable seed for the i'th candidate of taskID by
// hashing the two together, so the same (task_id, i) pair always yields
// the same seed across retries and process restarts.
func candidateSeed(taskID string, i int) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", taskID, i)))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1) // clear sign bit
}

func (g *Generator) generateOne(ctx context.Context, taskID, query, systemPrompt string, temperature float64, index int) candidateResult {
	timer := logging.StartTimer(logging.CategoryGeneration, "generateOne")
	defer timer.Stop()

	candCtx, cancel := context.WithTimeout(ctx, g.perCandidate)
	defer cancel()

	seed := candidateSeed(taskID, index)

	start := time.Now()
	resp, err := g.client.Generate(candCtx, Request{Query: query, Temperature: temperature, Seed: seed, SystemPrompt: systemPrompt})
	elapsed := time.Since(start)
	if err != nil {
		return candidateResult{index: index, err: &types.GenerationFailedError{CandidateID: fmt.Sprintf("%s-%d", taskID, index), Cause: err}}
	}

	return candidateResult{
		index: index,
		candidate: &types.Candidate{
			ID:             uuid.NewString(),
			TaskID:         taskID,
			Code:           resp.Code,
			Temperature:    temperature,
			Seed:           seed,
			Model:          resp.Model,
			Status:         types.CandidateGenerated,
			GenerationTime: elapsed,
		},
	}
}

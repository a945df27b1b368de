package generation

import (
	"context"
	"fmt"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// DeepModeEscalator re-issues a generation against a stronger "deep" tier
// model when a preliminary confidence signal is below threshold and the
// task opted into deep mode. It is consulted once per candidate, never
// recurses, and never changes temperature or seed — only the model used.
type DeepModeEscalator struct {
	client              LLMClient
	confidenceThreshold float64
	deepModel           string
}

// NewDeepModeEscalator constructs an escalator bound to the deep-tier
// client and model.
func NewDeepModeEscalator(client LLMClient, confidenceThreshold float64, deepModel string) *DeepModeEscalator {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &DeepModeEscalator{client: client, confidenceThreshold: confidenceThreshold, deepModel: deepModel}
}

// MaybeEscalate compares preliminaryConfidence against the threshold and,
// if the task requested deep mode and confidence is too low, re-generates
// candidate.Code against the deep tier. It always returns a
// types.DeepModeResult describing what happened, even when no escalation
// occurred.
func (d *DeepModeEscalator) MaybeEscalate(ctx context.Context, tc *types.TaskContext, candidate *types.Candidate, preliminaryConfidence float64) (*types.DeepModeResult, error) {
	if !tc.UseDeepMode {
		return &types.DeepModeResult{Tier: "fast", Escalated: false, Reason: "deep mode not requested"}, nil
	}
	if preliminaryConfidence >= d.confidenceThreshold {
		return &types.DeepModeResult{Tier: "fast", Escalated: false, Reason: fmt.Sprintf("confidence %.2f met threshold %.2f", preliminaryConfidence, d.confidenceThreshold)}, nil
	}

	logging.Generation("escalating candidate %s to deep tier: confidence %.2f below threshold %.2f", candidate.ID, preliminaryConfidence, d.confidenceThreshold)

	resp, err := d.client.Generate(ctx, Request{
		Query:       tc.Query,
		Temperature: candidate.Temperature,
		Seed:        candidate.Seed,
		Model:       d.deepModel,
	})
	if err != nil {
		return nil, &types.GenerationFailedError{CandidateID: candidate.ID, Cause: fmt.Errorf("deep mode escalation: %w", err)}
	}

	candidate.Code = resp.Code
	candidate.Model = resp.Model

	return &types.DeepModeResult{
		Tier:      "deep",
		Escalated: true,
		Reason:    fmt.Sprintf("confidence %.2f below threshold %.2f", preliminaryConfidence, d.confidenceThreshold),
	}, nil
}

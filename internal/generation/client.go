// Package generation produces and scores candidate code for a task: a
// pluggable LLM client abstraction, a bounded-parallel multi-candidate
// generator, and a deep-mode escalator that re-issues low-confidence
// generations against a stronger tier.
package generation

import "context"

// Request is one generation attempt's inputs.
type Request struct {
	Query       string
	Temperature float64
	Seed        int64
	MaxTokens   int
	Model       string
	// SystemPrompt carries any OSS-pattern context the caller wants
	// injected ahead of Query; self-correction feedback travels in Query.
	SystemPrompt string
}

// Response is the raw output of one generation attempt.
type Response struct {
	Code  string
	Model string
}

// LLMClient is the narrow interface CandidateGenerator depends on. Each
// provider (Anthropic, OpenAI, Gemini, xAI, ZAI, OpenRouter) and each CLI
// engine (claude-cli, codex-cli) implements it independently.
type LLMClient interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

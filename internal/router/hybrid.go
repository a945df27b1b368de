package router

import (
	"context"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// LLMClassifier is the last-resort tier: a full LLM call asked to name a
// task type. It is deliberately a narrow interface so the hybrid router
// does not depend on the generation package's provider machinery.
type LLMClassifier interface {
	ClassifyTaskType(ctx context.Context, query string) (types.TaskType, error)
}

// HybridRouter dispatches a query through three tiers in order: the
// regex PatternMatcher (fast, free), the NeuralRouter (embedding-based),
// and an optional LLMClassifier fallback. Each tier only runs if the
// previous tier failed to produce a confident match.
type HybridRouter struct {
	pattern       *PatternMatcher
	neural        *NeuralRouter
	llm           LLMClassifier
	minConfidence float64
}

// NewHybridRouter wires the three tiers together. llm may be nil, in
// which case an unmatched query after the pattern and neural tiers falls
// back to types.TaskGeneral.
func NewHybridRouter(pattern *PatternMatcher, neural *NeuralRouter, llm LLMClassifier, minConfidence float64) *HybridRouter {
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	return &HybridRouter{pattern: pattern, neural: neural, llm: llm, minConfidence: minConfidence}
}

// Route classifies query, escalating tiers until one produces a match at
// or above minConfidence. It never returns an error: routing failure
// degrades to types.TaskGeneral with confidence 0, per the fail-closed
// design (a query that cannot be classified is still processed, just
// without routing-derived hints).
func (h *HybridRouter) Route(ctx context.Context, query string) Match {
	if h.pattern != nil {
		if m, ok := h.pattern.Match(query); ok && m.Confidence >= h.minConfidence {
			return m
		}
	}

	if h.neural != nil {
		if m, ok := h.neural.Route(ctx, query); ok && m.Confidence >= h.minConfidence {
			return m
		}
	}

	if h.llm != nil {
		taskType, err := h.llm.ClassifyTaskType(ctx, query)
		if err == nil {
			logging.Router("llm tier classified query as %s", taskType)
			return Match{TaskType: taskType, Confidence: h.minConfidence}
		}
		logging.RouterWarn("llm classification tier failed: %v", err)
	}

	logging.RouterWarn("all routing tiers exhausted for query, defaulting to general")
	return Match{TaskType: types.TaskGeneral, Confidence: 0}
}

// Package profile implements ProfileAdapter: the history-informed override
// that sits between TaskAbstraction's static profile pick and the
// candidate generator, swapping in a profile OutcomeTracker has learned
// performs better for this task type, subject to a hard safety clamp for
// critical-risk work.
package profile

import (
	"context"
	"sync/atomic"

	"qwencode/internal/task"
	"qwencode/internal/types"
)

// Suggester is the read side of OutcomeTracker's analytics that the
// adapter depends on.
type Suggester interface {
	SuggestProfile(ctx context.Context, taskType types.TaskType, complexity types.Complexity) (types.ValidationProfile, float64, error)
}

// Adapter consults history and, when it disagrees with the static pick
// by enough margin, replaces the TaskContext's validation profile.
type Adapter struct {
	tracker Suggester

	// MinConfidence is the minimum SuggestProfile confidence required
	// before an override is accepted.
	MinConfidence float64

	overrides atomic.Int64
}

const defaultMinConfidence = 0.3

// NewAdapter builds an Adapter over tracker. tracker may be nil, in which
// case Apply is a no-op that returns tc unchanged.
func NewAdapter(tracker Suggester) *Adapter {
	return &Adapter{tracker: tracker, MinConfidence: defaultMinConfidence}
}

// Overrides reports how many times Apply has replaced the static profile
// pick with a history-suggested one.
func (a *Adapter) Overrides() int64 {
	return a.overrides.Load()
}

// Apply consults OutcomeTracker.SuggestProfile for tc's (TaskType,
// Complexity) key and, if the suggestion differs from tc's current
// profile and clears MinConfidence, replaces the profile and rederives
// FailFast/ParallelValidation from the new profile's config.
// risk_level=critical can never be downgraded from the critical profile:
// the clamp runs even when the tracker suggests otherwise.
func (a *Adapter) Apply(ctx context.Context, tc types.TaskContext) types.TaskContext {
	if a == nil || a.tracker == nil {
		return tc
	}
	if tc.RiskLevel == types.RiskCritical {
		return tc
	}

	suggested, confidence, err := a.tracker.SuggestProfile(ctx, tc.TaskType, tc.Complexity)
	if err != nil || confidence < a.MinConfidence {
		return tc
	}
	if suggested == tc.ValidationProfile {
		return tc
	}

	tc.ValidationProfile = suggested
	_, failFast, parallel := task.ValidationConfigFor(suggested)
	tc.FailFast = failFast
	tc.ParallelValidation = parallel
	a.overrides.Add(1)
	return tc
}

package validation

import "qwencode/internal/types"

// Score computes a candidate's final score from its per-rule results and
// a weight table (see task.ScoringWeightsFor). A rule missing from the
// weight table falls back to its own Weight().
//
// The weighted average is penalized when validation is imperfect:
// passing everything keeps the full weighted average, any error-severity
// score halves it, and anything else (warnings only) keeps it as-is.
func Score(scores []types.ValidationScore, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	allPassed := true
	anyError := false

	for _, s := range scores {
		w := s.Weight
		if override, ok := weights[s.ValidatorName]; ok {
			w = override
		}
		if w == 0 {
			w = 1.0
		}
		weightedSum += s.Score * w
		totalWeight += w

		if !s.Passed {
			allPassed = false
		}
		if s.Severity == types.SeverityError {
			anyError = true
		}
	}

	if totalWeight == 0 {
		return 0
	}
	weighted := weightedSum / totalWeight

	switch {
	case allPassed:
		return weighted
	case anyError:
		return weighted * 0.5
	default:
		return weighted
	}
}

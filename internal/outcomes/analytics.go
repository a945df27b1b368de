package outcomes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"qwencode/internal/types"
)

// ProfileStats summarizes how one validation profile has performed.
type ProfileStats struct {
	Profile       types.ValidationProfile
	Runs          int
	AvgScore      float64
	PassRate      float64
}

// TaskTypeStats summarizes outcomes for one task type.
type TaskTypeStats struct {
	TaskType types.TaskType
	Runs     int
	AvgScore float64
	PassRate float64
}

// RuleEffectiveness summarizes one rule's pass rate across every run it
// participated in.
type RuleEffectiveness struct {
	RuleName string
	Runs     int
	PassRate float64
}

// LearningSummary is a one-shot snapshot of the whole outcomes table,
// intended for a CLI `stats` command.
type LearningSummary struct {
	TotalRuns       int
	OverallAvgScore float64
	OverallPassRate float64
	ByProfile       []ProfileStats
	ByTaskType      []TaskTypeStats
	Insights        []string
}

// profileRow is one (validation_profile) group's aggregate for a given
// task_type+complexity key.
type profileRow struct {
	profile  types.ValidationProfile
	runs     int
	avgScore float64
}

// profileRanking groups outcomes by validation_profile for the
// (taskType, complexity) key, one row per profile seen.
func (t *Tracker) profileRanking(ctx context.Context, taskType types.TaskType, complexity types.Complexity) ([]profileRow, error) {
	rows, err := t.db.QueryContext(ctx, `
SELECT validation_profile, COUNT(*), AVG(best_score)
FROM outcomes WHERE task_type = ? AND complexity = ?
GROUP BY validation_profile`, string(taskType), string(complexity))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profileRow
	for rows.Next() {
		var r profileRow
		var profile string
		if err := rows.Scan(&profile, &r.runs, &r.avgScore); err != nil {
			return nil, err
		}
		r.profile = types.ValidationProfile(profile)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].avgScore > out[j].avgScore })
	return out, rows.Err()
}

// minSamplesForSuggestion is the sample-size floor a profile must clear
// before it is eligible to be suggested as the winner.
const minSamplesForSuggestion = 3

// SuggestProfile returns the validation profile with the maximal mean
// best_score among profiles with at least minSamplesForSuggestion runs
// for the (taskType, complexity) key, and a confidence in [0,1]. Falls
// back to ProfileBalanced with zero confidence when no profile clears
// the sample-size floor.
func (t *Tracker) SuggestProfile(ctx context.Context, taskType types.TaskType, complexity types.Complexity) (types.ValidationProfile, float64, error) {
	t.mu.RLock()
	ranking, err := t.profileRanking(ctx, taskType, complexity)
	t.mu.RUnlock()
	if err != nil {
		return types.ProfileBalanced, 0, err
	}

	winner, ok := firstEligible(ranking, minSamplesForSuggestion)
	if !ok {
		return types.ProfileBalanced, 0, nil
	}

	confidence := confidenceFor(ranking, winner)
	return winner.profile, confidence, nil
}

// firstEligible returns the highest-ranked row with at least minSamples
// runs; ranking is assumed sorted by avgScore descending.
func firstEligible(ranking []profileRow, minSamples int) (profileRow, bool) {
	for _, r := range ranking {
		if r.runs >= minSamples {
			return r, true
		}
	}
	return profileRow{}, false
}

// confidenceFor implements confidence = min(1, winner_count/20) +
// min(0.2, 2*score_gap), capped at 1, where score_gap is the winner's
// avg_score minus the best-scoring alternative's avg_score (0 when there
// is none).
func confidenceFor(ranking []profileRow, winner profileRow) float64 {
	scoreGap := 0.0
	for _, r := range ranking {
		if r.profile == winner.profile {
			continue
		}
		scoreGap = winner.avgScore - r.avgScore
		break
	}

	c := float64(winner.runs) / 20.0
	if c > 1 {
		c = 1
	}
	bonus := 2 * scoreGap
	if bonus > 0.2 {
		bonus = 0.2
	}
	if bonus < 0 {
		bonus = 0
	}
	if c+bonus > 1 {
		return 1
	}
	return c + bonus
}

// ProfileAlternative is one non-winning profile's track record, reported
// alongside GetProfileConfidence's suggestion for context.
type ProfileAlternative struct {
	Profile  types.ValidationProfile
	AvgScore float64
	Runs     int
}

// ProfileConfidence is GetProfileConfidence's full result shape.
type ProfileConfidence struct {
	SuggestedProfile types.ValidationProfile
	TotalOutcomes    int
	Confidence       float64
	AvgScore         float64
	Alternatives     []ProfileAlternative
}

// GetProfileConfidence reports the tracker's suggested profile for
// (taskType, complexity) along with the full confidence breakdown: total
// sample count across every profile seen for that key, the confidence
// score, the winning profile's average score, and every other profile's
// track record as an alternative.
func (t *Tracker) GetProfileConfidence(ctx context.Context, taskType types.TaskType, complexity types.Complexity) (ProfileConfidence, error) {
	t.mu.RLock()
	ranking, err := t.profileRanking(ctx, taskType, complexity)
	t.mu.RUnlock()
	if err != nil {
		return ProfileConfidence{}, err
	}

	total := 0
	for _, r := range ranking {
		total += r.runs
	}

	if len(ranking) == 0 {
		return ProfileConfidence{SuggestedProfile: types.ProfileBalanced, TotalOutcomes: total}, nil
	}

	winner, ok := firstEligible(ranking, minSamplesForSuggestion)
	if !ok {
		return ProfileConfidence{SuggestedProfile: types.ProfileBalanced, TotalOutcomes: total}, nil
	}

	alternatives := make([]ProfileAlternative, 0, len(ranking)-1)
	for _, r := range ranking {
		if r.profile == winner.profile {
			continue
		}
		alternatives = append(alternatives, ProfileAlternative{Profile: r.profile, AvgScore: r.avgScore, Runs: r.runs})
	}

	return ProfileConfidence{
		SuggestedProfile: winner.profile,
		TotalOutcomes:    total,
		Confidence:       confidenceFor(ranking, winner),
		AvgScore:         winner.avgScore,
		Alternatives:     alternatives,
	}, nil
}

// GetProfileStats returns aggregate stats for every profile seen.
func (t *Tracker) GetProfileStats(ctx context.Context) ([]ProfileStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.db.QueryContext(ctx, `
SELECT validation_profile, COUNT(*), AVG(best_score), AVG(all_passed)
FROM outcomes GROUP BY validation_profile`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfileStats
	for rows.Next() {
		var s ProfileStats
		var profile string
		if err := rows.Scan(&profile, &s.Runs, &s.AvgScore, &s.PassRate); err != nil {
			return nil, err
		}
		s.Profile = types.ValidationProfile(profile)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile < out[j].Profile })
	return out, rows.Err()
}

// GetTaskTypeStats returns aggregate stats for every task type seen.
func (t *Tracker) GetTaskTypeStats(ctx context.Context) ([]TaskTypeStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.db.QueryContext(ctx, `
SELECT task_type, COUNT(*), AVG(best_score), AVG(all_passed)
FROM outcomes GROUP BY task_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskTypeStats
	for rows.Next() {
		var s TaskTypeStats
		var taskType string
		if err := rows.Scan(&taskType, &s.Runs, &s.AvgScore, &s.PassRate); err != nil {
			return nil, err
		}
		s.TaskType = types.TaskType(taskType)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskType < out[j].TaskType })
	return out, rows.Err()
}

// GetRuleEffectiveness scans every stored rules_run/rules_passed pair and
// computes a per-rule pass rate. This is a full-table scan rather than a
// SQL aggregate since rule lists are stored as JSON arrays, not rows.
func (t *Tracker) GetRuleEffectiveness(ctx context.Context) (map[string]RuleEffectiveness, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.db.QueryContext(ctx, `SELECT rules_run, rules_passed FROM outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make(map[string]int)
	passed := make(map[string]int)

	for rows.Next() {
		var rulesRunJSON, rulesPassedJSON string
		if err := rows.Scan(&rulesRunJSON, &rulesPassedJSON); err != nil {
			return nil, err
		}
		var ran, passedNames []string
		_ = json.Unmarshal([]byte(rulesRunJSON), &ran)
		_ = json.Unmarshal([]byte(rulesPassedJSON), &passedNames)
		okSet := make(map[string]bool, len(passedNames))
		for _, r := range passedNames {
			okSet[r] = true
		}
		for _, r := range ran {
			runs[r]++
			if okSet[r] {
				passed[r]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]RuleEffectiveness, len(runs))
	for name, total := range runs {
		out[name] = RuleEffectiveness{
			RuleName: name,
			Runs:     total,
			PassRate: float64(passed[name]) / float64(total),
		}
	}
	return out, nil
}

// GetRiskAccuracy reports the fraction of critical- and high-risk runs
// whose recorded outcome passed every rule (after any self-correction),
// a proxy for how well risk
// classification predicts validation difficulty.
func (t *Tracker) GetRiskAccuracy(ctx context.Context) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var passRate float64
	row := t.db.QueryRowContext(ctx, `
SELECT COALESCE(AVG(all_passed), 0) FROM outcomes
WHERE risk_level IN ('high', 'critical')`)
	if err := row.Scan(&passRate); err != nil {
		return 0, err
	}
	return passRate, nil
}

// GetLearningSummary returns a full snapshot for a CLI `stats` command,
// including free-form narrative strings identifying the best-performing
// profile, the most-failing rule, and the weakest task type.
func (t *Tracker) GetLearningSummary(ctx context.Context) (LearningSummary, error) {
	byProfile, err := t.GetProfileStats(ctx)
	if err != nil {
		return LearningSummary{}, err
	}
	byTaskType, err := t.GetTaskTypeStats(ctx)
	if err != nil {
		return LearningSummary{}, err
	}
	ruleEffectiveness, err := t.GetRuleEffectiveness(ctx)
	if err != nil {
		return LearningSummary{}, err
	}

	t.mu.RLock()
	var total int
	var avgScore, passRate float64
	row := t.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(best_score),0), COALESCE(AVG(all_passed),0) FROM outcomes`)
	err = row.Scan(&total, &avgScore, &passRate)
	t.mu.RUnlock()
	if err != nil {
		return LearningSummary{}, err
	}

	return LearningSummary{
		TotalRuns:       total,
		OverallAvgScore: avgScore,
		OverallPassRate: passRate,
		ByProfile:       byProfile,
		ByTaskType:      byTaskType,
		Insights:        learningInsights(byProfile, byTaskType, ruleEffectiveness),
	}, nil
}

// learningInsights builds the free-form narrative lines the learning
// summary is required to surface: the best-performing profile overall,
// the most-failing rule (fail_rate > 0.2, runs >= 3), and the weakest
// task type (success_rate < 0.8). Any insight whose precondition isn't
// met is simply omitted rather than padded with a placeholder.
func learningInsights(byProfile []ProfileStats, byTaskType []TaskTypeStats, rules map[string]RuleEffectiveness) []string {
	var out []string

	if best := bestProfile(byProfile); best != nil {
		out = append(out, fmt.Sprintf("best-performing profile: %s (avg score %.2f, pass rate %.0f%% over %d runs)",
			best.Profile, best.AvgScore, best.PassRate*100, best.Runs))
	}

	if worst := mostFailingRule(rules); worst != nil {
		out = append(out, fmt.Sprintf("most-failing rule: %s (fail rate %.0f%% over %d runs)",
			worst.RuleName, (1-worst.PassRate)*100, worst.Runs))
	}

	if weak := weakestTaskType(byTaskType); weak != nil {
		out = append(out, fmt.Sprintf("weakest task type: %s (success rate %.0f%% over %d runs)",
			weak.TaskType, weak.PassRate*100, weak.Runs))
	}

	return out
}

func bestProfile(stats []ProfileStats) *ProfileStats {
	var best *ProfileStats
	for i := range stats {
		if best == nil || stats[i].AvgScore > best.AvgScore {
			best = &stats[i]
		}
	}
	return best
}

func mostFailingRule(rules map[string]RuleEffectiveness) *RuleEffectiveness {
	var worst *RuleEffectiveness
	for name, r := range rules {
		if r.Runs < 3 {
			continue
		}
		failRate := 1 - r.PassRate
		if failRate <= 0.2 {
			continue
		}
		if worst == nil || failRate > 1-worst.PassRate || (failRate == 1-worst.PassRate && name < worst.RuleName) {
			rc := r
			worst = &rc
		}
	}
	return worst
}

func weakestTaskType(stats []TaskTypeStats) *TaskTypeStats {
	var weakest *TaskTypeStats
	for i := range stats {
		if stats[i].PassRate >= 0.8 {
			continue
		}
		if weakest == nil || stats[i].PassRate < weakest.PassRate {
			weakest = &stats[i]
		}
	}
	return weakest
}

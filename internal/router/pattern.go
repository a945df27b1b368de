// Package router implements the tiered intent-routing pipeline: a fast
// regex pattern matcher, an embedding-based neural router, and a hybrid
// wrapper that escalates between them on low confidence.
package router

import (
	"regexp"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// KeywordSet holds compiled bilingual keyword patterns for one task type.
// English and Russian lists are matched independently so new languages can
// be added without touching the matching logic.
type KeywordSet struct {
	TaskType types.TaskType
	EN       []*regexp.Regexp
	RU       []*regexp.Regexp
}

// Match is the result of a pattern-tier classification attempt.
type Match struct {
	TaskType   types.TaskType
	Confidence float64
	Pattern    string
}

// PatternMatcher classifies queries against an ordered list of keyword
// sets. It is deterministic, has zero runtime dependency, and runs first
// in the hybrid pipeline.
type PatternMatcher struct {
	sets []KeywordSet
}

// NewPatternMatcher builds a matcher with the default bilingual keyword
// sets, ordered by priority: command-like queries first, then bug-fix,
// refactor, explanation, search and infrastructure queries, with
// code-generation queries checked last.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{sets: defaultKeywordSets()}
}

// NewPatternMatcherWithSets builds a matcher from caller-supplied keyword
// sets, in priority order.
func NewPatternMatcherWithSets(sets []KeywordSet) *PatternMatcher {
	return &PatternMatcher{sets: sets}
}

// Match returns the first keyword set whose EN or RU pattern list contains
// a match against query, or ok=false if nothing matched.
func (m *PatternMatcher) Match(query string) (Match, bool) {
	for _, set := range m.sets {
		if pat, ok := matchAny(set.EN, query); ok {
			logging.RouterDebug("pattern tier matched %s via EN pattern %q", set.TaskType, pat)
			return Match{TaskType: set.TaskType, Confidence: 0.95, Pattern: pat}, true
		}
		if pat, ok := matchAny(set.RU, query); ok {
			logging.RouterDebug("pattern tier matched %s via RU pattern %q", set.TaskType, pat)
			return Match{TaskType: set.TaskType, Confidence: 0.95, Pattern: pat}, true
		}
	}
	return Match{}, false
}

func matchAny(patterns []*regexp.Regexp, query string) (string, bool) {
	for _, p := range patterns {
		if p.MatchString(query) {
			return p.String(), true
		}
	}
	return "", false
}

func mustCompileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// defaultKeywordSets returns the built-in EN/RU keyword sets. Priority
// order matters: a query matching both "bug_fix" and "code_gen" keywords
// resolves to whichever set appears first.
func defaultKeywordSets() []KeywordSet {
	return []KeywordSet{
		{
			TaskType: types.TaskCommand,
			EN:       mustCompileAll(`(?i)^/\w+`, `(?i)^\s*(run|execute|exec)\s+`),
			RU:       mustCompileAll(`(?i)^\s*(выполни|запусти)\s+`),
		},
		{
			TaskType: types.TaskBugFix,
			EN:       mustCompileAll(`(?i)\b(fix|bug|broken|crash|error|traceback|exception)\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(почини|баг|ошибка|упал|сломан)(?:[^\p{L}]|$)`),
		},
		{
			TaskType: types.TaskRefactor,
			EN:       mustCompileAll(`(?i)\b(refactor|clean up|simplify|restructure)\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(рефактор|упрости|перепиши)(?:[^\p{L}]|$)`),
		},
		{
			TaskType: types.TaskExplain,
			EN:       mustCompileAll(`(?i)\b(explain|what does|how does|why (is|does))\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(объясни|почему|как работает)(?:[^\p{L}]|$)`),
		},
		{
			TaskType: types.TaskSearch,
			EN:       mustCompileAll(`(?i)\b(find|search|where is|locate)\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(найди|поиск|где)(?:[^\p{L}]|$)`),
		},
		{
			TaskType: types.TaskInfra,
			EN:       mustCompileAll(`(?i)\b(docker|kubernetes|k8s|deploy|ci\/?cd|terraform)\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(докер|развернуть)(?:[^\p{L}]|$)`),
		},
		{
			TaskType: types.TaskCodeGen,
			EN:       mustCompileAll(`(?i)\b(write|implement|create|add)\s+.*\b(function|class|method|endpoint|struct)\b`),
			RU:       mustCompileAll(`(?i)(?:^|[^\p{L}])(напиши|реализуй|создай)(?:[^\p{L}]|$)`),
		},
	}
}

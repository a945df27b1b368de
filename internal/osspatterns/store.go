// Package osspatterns implements the narrow, query-only read contract the
// oss_patterns validator rule and the candidate generator's OSS-context
// snippet depend on. Population, graph mining, and any networked backend
// are out of scope here: this is a small embedded table seeded from a
// static snippet list, satisfying the same lookup signature a future
// networked store could implement as a drop-in replacement.
package osspatterns

import "strings"

// Snippet is one known-good shape for a framework/pattern-kind pair.
type Snippet struct {
	Framework   string
	PatternKind string
	Code        string
}

// Store answers lookup(framework, pattern_kind) against an in-memory
// table. Safe for concurrent read-only use; it is never mutated after
// construction.
type Store struct {
	byKey map[string]string
}

func key(framework, patternKind string) string {
	return strings.ToLower(framework) + "::" + strings.ToLower(patternKind)
}

// New builds a Store from the built-in snippet table.
func New() *Store {
	s := &Store{byKey: make(map[string]string, len(builtinSnippets))}
	for _, snip := range builtinSnippets {
		s.byKey[key(snip.Framework, snip.PatternKind)] = snip.Code
	}
	return s
}

// Lookup returns the known snippet for framework+patternKind, if any.
func (s *Store) Lookup(framework, patternKind string) (string, bool) {
	if s == nil {
		return "", false
	}
	snippet, ok := s.byKey[key(framework, patternKind)]
	return snippet, ok
}

var builtinSnippets = []Snippet{
	{Framework: "python-stdlib", PatternKind: "idiomatic_shape", Code: "with open("},
	{Framework: "requests", PatternKind: "idiomatic_shape", Code: "response.raise_for_status()"},
	{Framework: "flask", PatternKind: "idiomatic_shape", Code: "@app.route("},
	{Framework: "fastapi", PatternKind: "idiomatic_shape", Code: "async def"},
	{Framework: "pytest", PatternKind: "idiomatic_shape", Code: "def test_"},
	{Framework: "sqlalchemy", PatternKind: "idiomatic_shape", Code: "session.commit()"},
	{Framework: "pandas", PatternKind: "idiomatic_shape", Code: "df.loc["},
	{Framework: "click", PatternKind: "idiomatic_shape", Code: "@click.command()"},
}

// Package querymod rewrites the raw user query before it reaches the
// router, injecting output-language instructions and stripping
// conversational wrapper phrases that would otherwise distract pattern
// matching further down the pipeline. The chain is a pure function of
// its input and configuration: same query, same modifiers enabled,
// same result every time.
package querymod

import (
	"regexp"
	"sort"
	"strings"

	"qwencode/internal/config"
)

// Priority controls modifier application order: lower numbers are more
// specific and run first.
type Priority int

const (
	PriorityFirst  Priority = 0
	PriorityNormal Priority = 50
	PriorityLast   Priority = 100
)

// Modifier is one rewrite step in the chain.
type Modifier interface {
	Name() string
	Priority() Priority
	Matches(query string) bool
	Apply(query string) string
}

// Engine holds the ordered modifier chain and runs it over incoming
// queries.
type Engine struct {
	enabled   bool
	modifiers []Modifier
}

// New builds the default modifier chain from configuration.
func New(cfg config.QueryModifierConfig) *Engine {
	e := &Engine{
		enabled: cfg.Enabled,
		modifiers: []Modifier{
			newCodeOnlyStripper(),
			newLanguageInjector(cfg.OutputLanguage),
		},
	}
	sort.SliceStable(e.modifiers, func(i, j int) bool {
		return e.modifiers[i].Priority() < e.modifiers[j].Priority()
	})
	return e
}

// Process rewrites query and reports which modifiers fired, in
// application order. Special commands (slash commands, bare tool
// invocations, pure math, greetings) pass through untouched: those
// are handled by HybridRouter's pattern matching, and rewriting them
// would break it.
func (e *Engine) Process(query string) (string, []string) {
	if !e.enabled || query == "" {
		return query, nil
	}

	result := strings.TrimSpace(query)
	if isSpecialCommand(result) {
		return result, nil
	}

	var applied []string
	for _, m := range e.modifiers {
		if m.Matches(result) {
			result = m.Apply(result)
			applied = append(applied, m.Name())
		}
	}
	return result, applied
}

var specialCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/`),
	regexp.MustCompile(`(?i)^\d+\s*[+\-*/]`),
	regexp.MustCompile(`(?i)^(hi|hello|hey|ping|pong)\s*$`),
	regexp.MustCompile(`(?i)^(git|grep|read|find|ls|glob|edit|write|bash|cat|cd|mkdir|rm|cp|mv|touch|pip|python|npm|node|docker|kubectl)\s`),
}

func isSpecialCommand(query string) bool {
	for _, pattern := range specialCommandPatterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}

// codeOnlyStripper removes conversational wrapper prefixes ("please",
// "can you", ...) that add noise without adding information for the
// downstream classifier.
type codeOnlyStripper struct {
	prefix *regexp.Regexp
}

func newCodeOnlyStripper() *codeOnlyStripper {
	return &codeOnlyStripper{
		prefix: regexp.MustCompile(`(?i)^(please|pls|can you|could you|would you mind)\b[,:]?\s*`),
	}
}

func (m *codeOnlyStripper) Name() string         { return "code_only_strip" }
func (m *codeOnlyStripper) Priority() Priority    { return PriorityFirst }
func (m *codeOnlyStripper) Matches(query string) bool {
	return m.prefix.MatchString(query)
}

func (m *codeOnlyStripper) Apply(query string) string {
	stripped := m.prefix.ReplaceAllString(query, "")
	if stripped == "" {
		return query
	}
	return stripped
}

// languageInjector appends an output-language instruction when the
// configured language is not "auto" and the query carries no existing
// language instruction of its own.
type languageInjector struct {
	language string
	suffix   string
	patterns []*regexp.Regexp
}

var languageSuffixes = map[string]string{
	"ru": " Отвечай на русском языке.",
	"en": " Answer in English.",
	"zh": " 请用中文回答。",
	"de": " Antworte auf Deutsch.",
	"fr": " Réponds en français.",
	"es": " Responde en español.",
}

var languageInstructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)answer in \w+`),
	regexp.MustCompile(`(?i)respond in \w+`),
	regexp.MustCompile(`(?i)reply in \w+`),
	regexp.MustCompile(`(?i)на русском`),
	regexp.MustCompile(`(?i)in english`),
}

func newLanguageInjector(language string) *languageInjector {
	language = strings.ToLower(strings.TrimSpace(language))
	suffix, ok := languageSuffixes[language]
	if !ok && language != "" && language != "auto" {
		suffix = " Answer in " + language + "."
	}
	return &languageInjector{
		language: language,
		suffix:   suffix,
		patterns: languageInstructionPatterns,
	}
}

func (m *languageInjector) Name() string      { return "language_instruction" }
func (m *languageInjector) Priority() Priority { return PriorityLast }

func (m *languageInjector) Matches(query string) bool {
	if m.language == "" || m.language == "auto" || m.suffix == "" {
		return false
	}
	if m.hasLanguageInstruction(query) {
		return false
	}
	return !strings.Contains(query, strings.TrimSuffix(strings.TrimSpace(m.suffix), "."))
}

func (m *languageInjector) hasLanguageInstruction(query string) bool {
	for _, pattern := range m.patterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}

func (m *languageInjector) Apply(query string) string {
	return strings.TrimRight(query, " \t") + m.suffix
}

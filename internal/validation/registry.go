package validation

import "sync"

// ValidatorRegistry holds every known Rule by name, Python built-ins and
// DevOps analysers alike. A single registry is built once at startup and
// shared read-only across requests; the mutex only guards registration,
// which happens during wiring, not during request handling.
type ValidatorRegistry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewValidatorRegistry returns an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{rules: make(map[string]Rule)}
}

// Register adds a rule, keyed by its own Name(). A later call with the
// same name overwrites the earlier one.
func (r *ValidatorRegistry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Name()] = rule
}

// Get looks up a rule by name.
func (r *ValidatorRegistry) Get(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Resolve returns the Rule for each name, skipping (and silently
// dropping) any name the registry does not recognize — an unknown rule
// name in a profile's config should never crash the pipeline.
func (r *ValidatorRegistry) Resolve(names []string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		if rule, ok := r.rules[name]; ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

// RegisterPythonRules registers the in-process Python quality checks:
// ast_syntax, no_forbidden_imports, no_eval_exec, code_length,
// complexity, docstring, type_hints, oss_patterns. oss_patterns detects
// the task's framework per-request from its ValidationContext, so it
// needs no framework argument at registration time.
func RegisterPythonRules(r *ValidatorRegistry, patterns PatternStore) {
	r.Register(NewASTSyntaxRule())
	r.Register(NewNoForbiddenImportsRule())
	r.Register(NewNoEvalExecRule())
	r.Register(NewCodeLengthRule(500))
	r.Register(NewComplexityRule())
	r.Register(NewDocstringRule())
	r.Register(NewTypeHintsRule())
	r.Register(NewOSSPatternsRule(patterns))
}

// RegisterStaticAnalysisRules registers the external Python static
// analysers: ruff, mypy, bandit.
func RegisterStaticAnalysisRules(r *ValidatorRegistry) {
	r.Register(NewRuffRule())
	r.Register(NewMypyRule())
	r.Register(NewBanditRule())
}

// RegisterDevOpsRules registers the external analysers used for
// non-Python content types: yamllint, kubeval, kube-linter, tflint,
// checkov, actionlint, ansible-lint, helm-lint, shellcheck,
// docker-compose, hadolint.
func RegisterDevOpsRules(r *ValidatorRegistry) {
	r.Register(NewSubprocessRule("yamllint", 1.0, "yamllint", []string{"-f", "parsable"}, passIfEmpty))
	r.Register(NewSubprocessRule("kubeval", 2.0, "kubeval", nil, passIfExitZero))
	r.Register(NewSubprocessRule("kube-linter", 2.0, "kube-linter", []string{"lint"}, passIfExitZero))
	r.Register(NewSubprocessRule("tflint", 2.0, "tflint", nil, passIfExitZero))
	r.Register(NewSubprocessRule("checkov", 2.5, "checkov", []string{"-f"}, passIfExitZero))
	r.Register(NewSubprocessRule("actionlint", 1.5, "actionlint", nil, passIfExitZero))
	r.Register(NewSubprocessRule("ansible-lint", 1.5, "ansible-lint", nil, passIfExitZero))
	r.Register(NewSubprocessRule("helm-lint", 1.5, "helm", []string{"lint"}, passIfExitZero))
	r.Register(NewSubprocessRule("shellcheck", 2.0, "shellcheck", []string{"-f", "json"}, passIfEmpty))
	r.Register(NewSubprocessRule("docker-compose", 1.0, "docker-compose", []string{"config", "-q"}, passIfExitZero))
	r.Register(NewSubprocessRule("hadolint", 1.5, "hadolint", []string{"-f", "json"}, passIfEmpty))
}

// RegisterAllRules wires every known rule category into one registry:
// the entry point used by production wiring.
func RegisterAllRules(r *ValidatorRegistry, patterns PatternStore) {
	RegisterPythonRules(r, patterns)
	RegisterStaticAnalysisRules(r)
	RegisterDevOpsRules(r)
}

// Package task synthesizes routing, classification, and complexity
// signals into a single TaskContext that downstream components
// (AdaptiveStrategy, CandidateGenerator, ValidationPipeline) consume
// without needing to know where each signal came from.
package task

import (
	"regexp"
	"strings"
	"time"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// DUCSResult is an optional domain-use-case-signature classification
// result. A zero-value result (Confidence 0) is treated as "no signal".
type DUCSResult struct {
	Code       int
	Category   string
	Confidence float64
}

// SWECASResult is an optional software-error-category classification
// result, used to drive risk escalation for security- and
// performance-flavored bug fixes.
type SWECASResult struct {
	Code       int
	Name       string
	Confidence float64
	FixHint    string
}

// ClassifyInput bundles every signal Abstraction.Classify needs. Signals
// the caller does not have are left at their zero value.
type ClassifyInput struct {
	Query          string
	DUCS           DUCSResult
	SWECAS         SWECASResult
	IsCodeGen      bool
	IsCommand      bool
	Complexity     types.Complexity
	IsSearchMode   bool
	IsDeepModeHint bool
}

var (
	bugFixRE = regexp.MustCompile(`(?i)\b(fix|bug|error|crash|failing|broken)\b|исправ|баг|ошибк|сломан|падает`)
	refactorRE = regexp.MustCompile(`(?i)\b(refactor|restructure|clean\s*up|improve|simplify)\b|рефакторинг|упрост|улучш|реструктур|очист`)
	explainRE  = regexp.MustCompile(`(?i)\b(explain|what\s+is|how\s+does|why\s+does|describe)\b|объясн|что\s+тако|как\s+работ|почему|опиш`)
	infraRE    = regexp.MustCompile(`(?i)\b(kubernetes|k8s|terraform|helm|ansible|playbook|yaml|github\s*actions?|dockerfile|docker[\-\s]compose|kustomize|argocd|flux|istio|service\s+mesh|ci/?cd|pipeline|workflow|shellcheck|bash\s+script|shell\s+script|helm\s+chart)\b|кубернет|терраформ|хельм|ансибл|плейбук|баш\s+скрипт`)
)

const (
	securitySWECASLow, securitySWECASHigh       = 500, 600
	performanceSWECASLow, performanceSWECASHigh = 800, 900
)

// profileConfig is the validation behavior bound to a ValidationProfile.
type profileConfig struct {
	RuleNames []string
	FailFast  bool
	Parallel  bool
}

var allRuleNames = []string{
	"ast_syntax",
	"no_forbidden_imports",
	"no_eval_exec",
	"code_length",
	"complexity",
	"docstring",
	"type_hints",
	"oss_patterns",
}

var profileConfigs = map[types.ValidationProfile]profileConfig{
	types.ProfileFastDev: {
		RuleNames: []string{"ast_syntax"},
		FailFast:  false,
		Parallel:  true,
	},
	types.ProfileBalanced: {
		RuleNames: []string{"ast_syntax", "no_forbidden_imports", "no_eval_exec", "complexity", "oss_patterns"},
		FailFast:  false,
		Parallel:  true,
	},
	types.ProfileSafeFix: {
		RuleNames: append([]string(nil), allRuleNames...),
		FailFast:  true,
		Parallel:  true,
	},
	types.ProfileCritical: {
		RuleNames: append([]string(nil), allRuleNames...),
		FailFast:  true,
		Parallel:  false,
	},
}

// devopsRuleNames maps a non-Python content type to its validator set.
var devopsRuleNames = map[string][]string{
	"kubernetes":      {"yamllint", "kubeval", "kube-linter"},
	"terraform":       {"tflint", "checkov"},
	"github_actions":  {"yamllint", "actionlint"},
	"ansible":         {"yamllint", "ansible-lint"},
	"helm":            {"helm-lint"},
	"bash":            {"shellcheck"},
	"docker_compose":  {"yamllint", "docker-compose"},
	"dockerfile":      {"hadolint"},
	"yaml":            {"yamllint"},
}

// Abstraction is a pure-logic classifier: no I/O, no LLM calls. It is
// safe to construct once and reuse across every request.
type Abstraction struct{}

// NewAbstraction returns a ready-to-use classifier.
func NewAbstraction() *Abstraction { return &Abstraction{} }

// Classify synthesizes every available signal into a TaskContext.
func (a *Abstraction) Classify(in ClassifyInput) *types.TaskContext {
	taskType := a.determineTaskType(in)
	risk := a.determineRisk(taskType, in.SWECAS, in.Complexity)
	profile := a.determineProfile(taskType, risk, in.Complexity)
	cfg := profileConfigFor(profile)

	ctx := &types.TaskContext{
		Query:              in.Query,
		TaskType:           taskType,
		RiskLevel:          risk,
		ValidationProfile:  profile,
		Complexity:         in.Complexity,
		IsCodeGeneration:   in.IsCodeGen,
		IsCommand:          in.IsCommand,
		UseMultiCandidate:  in.IsCodeGen && (taskType == types.TaskCodeGen || taskType == types.TaskInfra),
		UseDeepMode:        in.IsDeepModeHint,
		FailFast:           cfg.FailFast,
		ParallelValidation: cfg.Parallel,
		CreatedAt:          time.Now(),
	}

	if in.DUCS.Confidence >= 0.5 {
		ctx.DUCSCode = in.DUCS.Code
		ctx.DUCSConfidence = in.DUCS.Confidence
	}
	if in.SWECAS.Confidence >= 0.5 {
		ctx.SWECASCode = in.SWECAS.Code
		ctx.HasSWECAS = true
		ctx.SWECASConfidence = in.SWECAS.Confidence
		ctx.FixHint = in.SWECAS.FixHint
	}

	logging.TaskDebug("classified query as task_type=%s risk=%s profile=%s complexity=%s",
		taskType, risk, profile, in.Complexity)

	return ctx
}

// determineTaskType resolves priority order: COMMAND > SEARCH >
// CODE_GENERATION > BUG_FIX > REFACTORING > EXPLANATION > INFRASTRUCTURE > GENERAL.
func (a *Abstraction) determineTaskType(in ClassifyInput) types.TaskType {
	if in.IsCommand {
		return types.TaskCommand
	}
	if in.IsSearchMode {
		return types.TaskSearch
	}
	if in.IsCodeGen {
		return types.TaskCodeGen
	}

	query := in.Query
	switch {
	case bugFixRE.MatchString(query):
		return types.TaskBugFix
	case refactorRE.MatchString(query):
		return types.TaskRefactor
	case explainRE.MatchString(query):
		return types.TaskExplain
	case infraRE.MatchString(query):
		return types.TaskInfra
	}
	return types.TaskGeneral
}

// determineRisk applies the SWECAS/complexity/task-type priority ladder.
func (a *Abstraction) determineRisk(taskType types.TaskType, swecas SWECASResult, complexity types.Complexity) types.RiskLevel {
	hasSWECAS := swecas.Confidence >= 0.5

	if hasSWECAS && swecas.Code >= securitySWECASLow && swecas.Code < securitySWECASHigh {
		return types.RiskCritical
	}
	if complexity == types.ComplexityCritical {
		return types.RiskCritical
	}
	if taskType == types.TaskBugFix && hasSWECAS {
		return types.RiskHigh
	}
	if hasSWECAS && swecas.Code >= performanceSWECASLow && swecas.Code < performanceSWECASHigh {
		return types.RiskHigh
	}
	if complexity == types.ComplexityComplex {
		return types.RiskHigh
	}
	if taskType == types.TaskCommand || taskType == types.TaskExplain {
		return types.RiskLow
	}
	if taskType == types.TaskCodeGen && (complexity == types.ComplexityTrivial || complexity == types.ComplexitySimple) {
		return types.RiskLow
	}
	return types.RiskMedium
}

// determineProfile maps risk level and task type to a validation profile.
func (a *Abstraction) determineProfile(taskType types.TaskType, risk types.RiskLevel, complexity types.Complexity) types.ValidationProfile {
	switch {
	case risk == types.RiskCritical:
		return types.ProfileCritical
	case risk == types.RiskHigh:
		return types.ProfileSafeFix
	case taskType == types.TaskCommand || taskType == types.TaskExplain:
		return types.ProfileFastDev
	case complexity == types.ComplexityTrivial:
		return types.ProfileFastDev
	default:
		return types.ProfileBalanced
	}
}

func profileConfigFor(profile types.ValidationProfile) profileConfig {
	if cfg, ok := profileConfigs[profile]; ok {
		return cfg
	}
	return profileConfigs[types.ProfileBalanced]
}

// ValidationConfigFor returns the rule set, fail-fast, and parallel flags
// bound to a validation profile.
func ValidationConfigFor(profile types.ValidationProfile) (ruleNames []string, failFast, parallel bool) {
	cfg := profileConfigFor(profile)
	return append([]string(nil), cfg.RuleNames...), cfg.FailFast, cfg.Parallel
}

// ValidationConfigForContent returns DevOps-specific rule names for
// non-Python content types, falling back to the profile's standard rules
// when contentType is unrecognized.
func ValidationConfigForContent(contentType string, profile types.ValidationProfile) (ruleNames []string, failFast, parallel bool) {
	cfg := profileConfigFor(profile)
	if names, ok := devopsRuleNames[strings.ToLower(contentType)]; ok {
		return append([]string(nil), names...), cfg.FailFast, cfg.Parallel
	}
	return append([]string(nil), cfg.RuleNames...), cfg.FailFast, cfg.Parallel
}

// ScoringWeightsFor returns the rule-name -> weight table used by Scorer
// for a given profile.
func ScoringWeightsFor(profile types.ValidationProfile) map[string]float64 {
	switch profile {
	case types.ProfileFastDev:
		return map[string]float64{"ast_syntax": 10.0}
	case types.ProfileCritical:
		return map[string]float64{
			"ast_syntax": 10.0, "static_ruff": 4.0, "static_mypy": 3.0, "static_bandit": 6.0,
			"complexity": 2.0, "style": 1.0, "docstring": 0.5, "oss_patterns": 1.0,
			"no_forbidden_imports": 5.0, "no_eval_exec": 5.0,
		}
	case types.ProfileSafeFix:
		return map[string]float64{
			"ast_syntax": 10.0, "static_ruff": 3.0, "static_mypy": 2.5, "static_bandit": 5.0,
			"complexity": 2.0, "style": 1.0, "docstring": 0.5, "oss_patterns": 1.5,
			"no_forbidden_imports": 4.0, "no_eval_exec": 4.0,
		}
	default:
		return map[string]float64{
			"ast_syntax": 10.0, "static_ruff": 3.0, "static_mypy": 2.0, "static_bandit": 4.0,
			"complexity": 1.5, "style": 1.0, "docstring": 0.5, "oss_patterns": 1.5,
		}
	}
}

package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"strings"

	"qwencode/internal/types"
)

// NewASTSyntaxRule checks that code parses as valid Python by shelling
// out to `python3 -c "import ast,sys; ast.parse(sys.stdin.read())"`.
// This is the only rule every profile runs (weight 10 everywhere) since a
// candidate that doesn't parse cannot be meaningfully scored at all.
func NewASTSyntaxRule() Rule {
	return &astSyntaxRule{}
}

type astSyntaxRule struct{}

func (r *astSyntaxRule) Name() string    { return "ast_syntax" }
func (r *astSyntaxRule) Weight() float64 { return 10.0 }

func (r *astSyntaxRule) Check(ctx context.Context, code string, vctx ValidationContext) (types.ValidationScore, error) {
	if _, err := exec.LookPath("python3"); err != nil {
		return types.ValidationScore{
			ValidatorName: r.Name(), Passed: true, Score: 0.9, Weight: r.Weight(),
			Warnings: []string{(&types.ValidatorMissingError{Rule: r.Name()}).Error()},
			Severity: types.SeverityWarning,
		}, nil
	}

	cmd := exec.CommandContext(ctx, "python3", "-c", "import ast,sys; ast.parse(sys.stdin.read())")
	cmd.Stdin = strings.NewReader(code)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return types.ValidationScore{}, &types.ValidatorTimeoutError{Rule: r.Name()}
	}
	if err != nil {
		return types.ValidationScore{
			ValidatorName: r.Name(), Passed: false, Score: 0, Weight: r.Weight(),
			Errors: []string{strings.TrimSpace(stderr.String())}, Severity: types.SeverityError,
		}, nil
	}
	return types.ValidationScore{ValidatorName: r.Name(), Passed: true, Score: 1.0, Weight: r.Weight(), Severity: types.SeverityInfo}, nil
}

var forbiddenImportRE = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+(os\.system|subprocess|ctypes|pickle)\b`)

// NewNoForbiddenImportsRule flags imports of modules that allow arbitrary
// code or native execution from generated code.
func NewNoForbiddenImportsRule() Rule {
	return ruleFunc{
		name:   "no_forbidden_imports",
		weight: 5.0,
		fn: func(code string) types.ValidationScore {
			if m := forbiddenImportRE.FindString(code); m != "" {
				return types.ValidationScore{Passed: false, Score: 0, Errors: []string{"forbidden import: " + strings.TrimSpace(m)}, Severity: types.SeverityError}
			}
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		},
	}
}

var evalExecRE = regexp.MustCompile(`\b(eval|exec)\s*\(`)

// NewNoEvalExecRule flags direct eval()/exec() calls.
func NewNoEvalExecRule() Rule {
	return ruleFunc{
		name:   "no_eval_exec",
		weight: 5.0,
		fn: func(code string) types.ValidationScore {
			if m := evalExecRE.FindString(code); m != "" {
				return types.ValidationScore{Passed: false, Score: 0, Errors: []string{"use of " + m + " is forbidden"}, Severity: types.SeverityError}
			}
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		},
	}
}

// NewCodeLengthRule warns (but does not fail) on candidates over maxLines.
func NewCodeLengthRule(maxLines int) Rule {
	if maxLines <= 0 {
		maxLines = 500
	}
	return ruleFunc{
		name:   "code_length",
		weight: 1.0,
		fn: func(code string) types.ValidationScore {
			n := strings.Count(code, "\n") + 1
			if n > maxLines {
				return types.ValidationScore{Passed: true, Score: 0.7, Warnings: []string{"candidate exceeds recommended length"}, Severity: types.SeverityWarning}
			}
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		},
	}
}

// NewComplexityRule scores candidates down as nesting depth grows,
// approximating cyclomatic complexity via indentation depth — a cheap,
// dependency-free proxy that does not require a Python AST walk.
func NewComplexityRule() Rule {
	return ruleFunc{
		name:   "complexity",
		weight: 1.5,
		fn: func(code string) types.ValidationScore {
			maxIndent := 0
			for _, line := range strings.Split(code, "\n") {
				trimmed := strings.TrimLeft(line, " ")
				indent := (len(line) - len(trimmed)) / 4
				if indent > maxIndent {
					maxIndent = indent
				}
			}
			switch {
			case maxIndent <= 3:
				return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
			case maxIndent <= 5:
				return types.ValidationScore{Passed: true, Score: 0.7, Warnings: []string{"deep nesting detected"}, Severity: types.SeverityWarning}
			default:
				return types.ValidationScore{Passed: true, Score: 0.4, Warnings: []string{"excessive nesting depth"}, Severity: types.SeverityWarning}
			}
		},
	}
}

var defRE = regexp.MustCompile(`(?m)^\s*def\s+\w+\([^)]*\)\s*:`)
var docstringAfterDefRE = regexp.MustCompile(`(?ms)^\s*def\s+\w+\([^)]*\)\s*:\s*\n\s*("""|''')`)

// NewDocstringRule warns when function definitions lack a docstring.
func NewDocstringRule() Rule {
	return ruleFunc{
		name:   "docstring",
		weight: 0.5,
		fn: func(code string) types.ValidationScore {
			defs := defRE.FindAllString(code, -1)
			if len(defs) == 0 {
				return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
			}
			documented := len(docstringAfterDefRE.FindAllString(code, -1))
			ratio := float64(documented) / float64(len(defs))
			if ratio < 0.5 {
				return types.ValidationScore{Passed: true, Score: ratio, Warnings: []string{"most functions lack docstrings"}, Severity: types.SeverityWarning}
			}
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		},
	}
}

var typeHintRE = regexp.MustCompile(`->\s*\w|\:\s*(int|str|float|bool|list|dict|List|Dict|Optional)\b`)

// NewTypeHintsRule warns when function signatures lack type annotations.
func NewTypeHintsRule() Rule {
	return ruleFunc{
		name:   "type_hints",
		weight: 1.0,
		fn: func(code string) types.ValidationScore {
			defs := defRE.FindAllString(code, -1)
			if len(defs) == 0 {
				return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
			}
			hinted := 0
			for _, d := range defs {
				if typeHintRE.MatchString(d) {
					hinted++
				}
			}
			ratio := float64(hinted) / float64(len(defs))
			if ratio < 0.5 {
				return types.ValidationScore{Passed: true, Score: ratio, Warnings: []string{"most functions lack type hints"}, Severity: types.SeverityWarning}
			}
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		},
	}
}

// PatternStore is the narrow read interface OSSPatternStore exposes to
// the oss_patterns rule (kept here rather than importing the osspatterns
// package to avoid a dependency cycle).
type PatternStore interface {
	Lookup(framework, patternKind string) (snippet string, found bool)
}

// ossPatternsRule rewards candidates whose shape matches a known-good
// pattern for the task's framework. Unlike the pure ruleFunc checks, it
// needs the ValidationContext to know which framework the task targets,
// detected from the originating query rather than fixed at registration
// time.
type ossPatternsRule struct {
	store PatternStore
}

func (r ossPatternsRule) Name() string    { return "oss_patterns" }
func (r ossPatternsRule) Weight() float64 { return 1.5 }

func (r ossPatternsRule) Check(ctx context.Context, code string, vctx ValidationContext) (types.ValidationScore, error) {
	score := types.ValidationScore{ValidatorName: "oss_patterns", Weight: 1.5}

	if r.store == nil || vctx.TaskContext == nil {
		score.Passed, score.Score, score.Severity = true, 1.0, types.SeverityInfo
		return score, nil
	}

	framework := DetectFramework(vctx.TaskContext.Query)
	snippet, found := r.store.Lookup(framework, "idiomatic_shape")
	if !found {
		score.Passed, score.Score, score.Severity = true, 1.0, types.SeverityInfo
		return score, nil
	}
	if strings.Contains(code, snippet) {
		score.Passed, score.Score, score.Severity = true, 1.0, types.SeverityInfo
		return score, nil
	}
	score.Passed = true
	score.Score = 0.8
	score.Warnings = []string{"candidate does not follow known framework pattern for " + framework}
	score.Severity = types.SeverityWarning
	return score, nil
}

// NewOSSPatternsRule rewards candidates whose shape matches a known-good
// pattern for the task's framework, detected per-request rather than
// fixed at registration time.
func NewOSSPatternsRule(store PatternStore) Rule {
	return ossPatternsRule{store: store}
}

// ruleFunc adapts a pure code->score function into a Rule, for the
// built-in checks that need no subprocess and no external state.
type ruleFunc struct {
	name   string
	weight float64
	fn     func(code string) types.ValidationScore
}

func (r ruleFunc) Name() string    { return r.name }
func (r ruleFunc) Weight() float64 { return r.weight }

func (r ruleFunc) Check(ctx context.Context, code string, vctx ValidationContext) (types.ValidationScore, error) {
	score := r.fn(code)
	score.ValidatorName = r.name
	score.Weight = r.weight
	return score, nil
}

// ruffDiagnostic mirrors one entry of `ruff check --output-format json`.
type ruffDiagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRuffRule wraps the `ruff` external linter.
func NewRuffRule() Rule {
	return NewSubprocessRule("static_ruff", 3.0, "ruff", []string{"check", "--output-format", "json"}, func(stdout []byte, exitCode int) types.ValidationScore {
		var diags []ruffDiagnostic
		_ = json.Unmarshal(stdout, &diags)
		if len(diags) == 0 {
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		}
		msgs := make([]string, 0, len(diags))
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		return types.ValidationScore{Passed: true, Score: 0.6, Warnings: msgs, Severity: types.SeverityWarning}
	})
}

// NewMypyRule wraps the `mypy` external type checker.
func NewMypyRule() Rule {
	return NewSubprocessRule("static_mypy", 2.0, "mypy", []string{"--no-error-summary"}, func(stdout []byte, exitCode int) types.ValidationScore {
		if exitCode == 0 {
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		}
		return types.ValidationScore{Passed: true, Score: 0.7, Warnings: []string{strings.TrimSpace(string(stdout))}, Severity: types.SeverityWarning}
	})
}

// bandit's JSON report nests results under "results".
type banditReport struct {
	Results []struct {
		IssueText     string `json:"issue_text"`
		IssueSeverity string `json:"issue_severity"`
	} `json:"results"`
}

// NewBanditRule wraps the `bandit` external security linter.
func NewBanditRule() Rule {
	return NewSubprocessRule("static_bandit", 4.0, "bandit", []string{"-f", "json", "-q"}, func(stdout []byte, exitCode int) types.ValidationScore {
		var report banditReport
		_ = json.Unmarshal(stdout, &report)
		if len(report.Results) == 0 {
			return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
		}
		var highSeverity bool
		msgs := make([]string, 0, len(report.Results))
		for _, r := range report.Results {
			msgs = append(msgs, r.IssueText)
			if r.IssueSeverity == "HIGH" {
				highSeverity = true
			}
		}
		if highSeverity {
			return types.ValidationScore{Passed: false, Score: 0.2, Errors: msgs, Severity: types.SeverityError}
		}
		return types.ValidationScore{Passed: true, Score: 0.7, Warnings: msgs, Severity: types.SeverityWarning}
	})
}

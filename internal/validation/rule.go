// Package validation implements the layered validation pipeline: a
// registry of pluggable rules (syntax, built-in static analysis, external
// tool subprocesses, DevOps analysers), parallel or sequential execution
// via the pipeline, and the weighted scorer that turns rule results into
// one ValidationScore per candidate.
package validation

import (
	"context"
	"os/exec"

	"qwencode/internal/types"
)

// ValidationContext carries the ambient information rules need beyond the
// raw code string: which task produced it, and the content type (for
// DevOps rules dispatching to the right external tool).
type ValidationContext struct {
	TaskContext *types.TaskContext
	ContentType string // "python", "kubernetes", "terraform", "bash", ...
	FilePath    string // temp file path backing Code, for subprocess rules
}

// Rule is the interface every validator implements, whether it is a pure
// in-process check (ast_syntax, no_eval_exec) or a subprocess wrapper
// around an external static analyser (ruff, mypy, bandit, tflint, ...).
type Rule interface {
	Name() string
	Weight() float64
	// Check runs the rule against code. It must respect ctx cancellation
	// for subprocess-backed rules.
	Check(ctx context.Context, code string, vctx ValidationContext) (types.ValidationScore, error)
}

// subprocessRule wraps an external static-analysis binary invoked with
// the contract `program [args] file`. A non-zero exit is not treated as a
// subprocess failure: stdout and the exit code both go to the rule's
// parse function, which decides the score (parsing JSON when the tool
// emits it). A missing binary degrades to a passing
// score with a warning rather than blocking the pipeline.
type subprocessRule struct {
	name    string
	weight  float64
	binary  string
	args    []string
	parse   func(stdout []byte, exitCode int) types.ValidationScore
}

func (r *subprocessRule) Name() string    { return r.name }
func (r *subprocessRule) Weight() float64 { return r.weight }

func (r *subprocessRule) Check(ctx context.Context, code string, vctx ValidationContext) (types.ValidationScore, error) {
	if _, err := exec.LookPath(r.binary); err != nil {
		return types.ValidationScore{
			ValidatorName: r.name,
			Passed:        true,
			Score:         0.9,
			Warnings:      []string{(&types.ValidatorMissingError{Rule: r.name}).Error()},
			Weight:        r.weight,
			Severity:      types.SeverityWarning,
		}, nil
	}

	args := append(append([]string(nil), r.args...), vctx.FilePath)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	stdout, _ := cmd.Output() // a non-zero exit is read below and handed to parse, not returned as an error
	if ctx.Err() != nil {
		return types.ValidationScore{}, &types.ValidatorTimeoutError{Rule: r.name}
	}

	exitCode := 0
	if exitErr, ok := cmd.ProcessState.Sys().(interface{ ExitStatus() int }); ok {
		exitCode = exitErr.ExitStatus()
	}

	score := r.parse(stdout, exitCode)
	score.ValidatorName = r.name
	score.Weight = r.weight
	return score, nil
}

// NewSubprocessRule constructs a Rule backed by an external binary.
func NewSubprocessRule(name string, weight float64, binary string, args []string, parse func(stdout []byte, exitCode int) types.ValidationScore) Rule {
	return &subprocessRule{name: name, weight: weight, binary: binary, args: args, parse: parse}
}

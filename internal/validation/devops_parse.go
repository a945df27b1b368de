package validation

import "qwencode/internal/types"

// passIfExitZero treats a zero exit code as passing and anything else as
// an error-level failure, for CLI tools whose useful output is plain
// text rather than JSON.
func passIfExitZero(stdout []byte, exitCode int) types.ValidationScore {
	if exitCode == 0 {
		return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
	}
	return types.ValidationScore{Passed: false, Score: 0.0, Errors: []string{string(stdout)}, Severity: types.SeverityError}
}

// passIfEmpty treats empty stdout as passing, for linters that print
// nothing when clean regardless of exit code.
func passIfEmpty(stdout []byte, exitCode int) types.ValidationScore {
	if len(stdout) == 0 {
		return types.ValidationScore{Passed: true, Score: 1.0, Severity: types.SeverityInfo}
	}
	return types.ValidationScore{Passed: false, Score: 0.0, Errors: []string{string(stdout)}, Severity: types.SeverityError}
}

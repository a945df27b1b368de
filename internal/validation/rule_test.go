package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/types"
)

func TestSubprocessRule_MissingBinaryDegradesToPassing(t *testing.T) {
	rule := NewSubprocessRule("fake_tool", 2.0, "definitely-not-a-real-binary-xyz", nil, func(stdout []byte, exitCode int) types.ValidationScore {
		t.Fatal("parse should not be called when binary is missing")
		return types.ValidationScore{}
	})

	score, err := rule.Check(context.Background(), "code", ValidationContext{FilePath: "/tmp/x.py"})
	require.NoError(t, err)
	assert.True(t, score.Passed)
	assert.Equal(t, 0.9, score.Score)
	assert.Equal(t, types.SeverityWarning, score.Severity)
	assert.NotEmpty(t, score.Warnings)
}

func TestSubprocessRule_NameAndWeight(t *testing.T) {
	rule := NewSubprocessRule("fake_tool", 3.5, "true", nil, nil)
	assert.Equal(t, "fake_tool", rule.Name())
	assert.Equal(t, 3.5, rule.Weight())
}

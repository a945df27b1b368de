package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwencode/internal/types"
)

func TestNoForbiddenImportsRule(t *testing.T) {
	rule := NewNoForbiddenImportsRule()

	score, err := rule.Check(context.Background(), "import subprocess\n", ValidationContext{})
	require.NoError(t, err)
	assert.False(t, score.Passed)

	score, err = rule.Check(context.Background(), "import json\n", ValidationContext{})
	require.NoError(t, err)
	assert.True(t, score.Passed)
}

func TestNoEvalExecRule(t *testing.T) {
	rule := NewNoEvalExecRule()

	score, err := rule.Check(context.Background(), "result = eval(user_input)\n", ValidationContext{})
	require.NoError(t, err)
	assert.False(t, score.Passed)

	score, err = rule.Check(context.Background(), "result = compute(user_input)\n", ValidationContext{})
	require.NoError(t, err)
	assert.True(t, score.Passed)
}

func TestCodeLengthRule(t *testing.T) {
	rule := NewCodeLengthRule(2)
	score, err := rule.Check(context.Background(), "line1\nline2\nline3\n", ValidationContext{})
	require.NoError(t, err)
	assert.True(t, score.Passed)
	assert.Less(t, score.Score, 1.0)
}

func TestComplexityRule(t *testing.T) {
	rule := NewComplexityRule()
	shallow := "def f():\n    return 1\n"
	score, err := rule.Check(context.Background(), shallow, ValidationContext{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Score)

	deep := "def f():\n    if True:\n        if True:\n            if True:\n                if True:\n                    if True:\n                        if True:\n                            return 1\n"
	score, err = rule.Check(context.Background(), deep, ValidationContext{})
	require.NoError(t, err)
	assert.Less(t, score.Score, 1.0)
}

func TestDocstringRule(t *testing.T) {
	rule := NewDocstringRule()

	documented := "def f():\n    \"\"\"Does a thing.\"\"\"\n    return 1\n"
	score, err := rule.Check(context.Background(), documented, ValidationContext{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Score)

	undocumented := "def f():\n    return 1\n"
	score, err = rule.Check(context.Background(), undocumented, ValidationContext{})
	require.NoError(t, err)
	assert.Less(t, score.Score, 1.0)
}

func TestTypeHintsRule(t *testing.T) {
	rule := NewTypeHintsRule()

	hinted := "def f(x: int) -> int:\n    return x\n"
	score, err := rule.Check(context.Background(), hinted, ValidationContext{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Score)

	unhinted := "def f(x):\n    return x\n"
	score, err = rule.Check(context.Background(), unhinted, ValidationContext{})
	require.NoError(t, err)
	assert.Less(t, score.Score, 1.0)
}

type fakePatternStore struct {
	snippet string
}

func (f fakePatternStore) Lookup(framework, patternKind string) (string, bool) {
	if f.snippet == "" {
		return "", false
	}
	return f.snippet, true
}

func TestOSSPatternsRule(t *testing.T) {
	rule := NewOSSPatternsRule(fakePatternStore{snippet: "with open("})
	vctx := ValidationContext{TaskContext: &types.TaskContext{Query: "write a python-stdlib helper"}}

	score, err := rule.Check(context.Background(), "with open('f') as fh:\n    pass\n", vctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Score)

	score, err = rule.Check(context.Background(), "fh = open('f')\n", vctx)
	require.NoError(t, err)
	assert.Less(t, score.Score, 1.0)
}

func TestOSSPatternsRule_NoStoreNeverBlocks(t *testing.T) {
	rule := NewOSSPatternsRule(nil)
	score, err := rule.Check(context.Background(), "anything at all", ValidationContext{})
	require.NoError(t, err)
	assert.True(t, score.Passed)
	assert.Equal(t, 1.0, score.Score)
}

func TestOSSPatternsRule_NoTaskContextNeverBlocks(t *testing.T) {
	rule := NewOSSPatternsRule(fakePatternStore{snippet: "with open("})
	score, err := rule.Check(context.Background(), "anything at all", ValidationContext{})
	require.NoError(t, err)
	assert.True(t, score.Passed)
	assert.Equal(t, 1.0, score.Score)
}

func TestOSSPatternsRule_DetectsFrameworkFromQuery(t *testing.T) {
	rule := NewOSSPatternsRule(fakePatternStore{snippet: "flask-shape"})
	vctx := ValidationContext{TaskContext: &types.TaskContext{Query: "add a flask route"}}

	score, err := rule.Check(context.Background(), "flask-shape\n", vctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Score)

	score, err = rule.Check(context.Background(), "something else\n", vctx)
	require.NoError(t, err)
	assert.Contains(t, score.Warnings, "candidate does not follow known framework pattern for flask")
}

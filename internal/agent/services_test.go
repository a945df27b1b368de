package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwencode/internal/config"
	"qwencode/internal/generation"
)

type fakeClient struct {
	code          string
	lastRequest   *generation.Request
	captureTarget **generation.Request
}

func (f fakeClient) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	if f.captureTarget != nil {
		*f.captureTarget = &req
	}
	return generation.Response{Code: f.code, Model: "fake"}, nil
}

func (f fakeClient) Name() string { return "fake" }

func newTestServices(t *testing.T, code string) *CoreServices {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Outcomes.DBPath = filepath.Join(dir, "outcomes.sqlite")
	cfg.Adaptive.HistoryPath = filepath.Join(dir, "adaptive_history.json")
	cfg.QueryModifier.Enabled = true
	cfg.QueryModifier.OutputLanguage = "auto"

	client := fakeClient{code: code}
	services, err := NewCoreServices(cfg, client, nil)
	require.NoError(t, err)
	t.Cleanup(func() { services.Close() })
	return services
}

func TestProcess_CommandQueryReturnsEarlyWithoutGeneration(t *testing.T) {
	services := newTestServices(t, "")
	result, err := services.Process(context.Background(), "/help")
	require.NoError(t, err)
	assert.True(t, result.ToolCommand)
	assert.Nil(t, result.Best)
}

func TestProcess_CodeGenerationProducesScoredCandidate(t *testing.T) {
	services := newTestServices(t, "def add(a: int, b: int) -> int:\n    return a + b\n")
	result, err := services.Process(context.Background(), "write a python function that adds two numbers")
	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.NotEmpty(t, result.Best.ValidationScores)
	assert.Greater(t, result.Best.TotalScore, 0.0)
}

func TestProcess_RecordsOutcomeForLearning(t *testing.T) {
	services := newTestServices(t, "def f():\n    return 1\n")
	_, err := services.Process(context.Background(), "write a python function")
	require.NoError(t, err)

	summary, err := services.Tracker.GetLearningSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRuns)
}

func TestProcess_PoorCandidateTriggersSelfCorrection(t *testing.T) {
	services := newTestServices(t, "import subprocess\neval(x)\n")
	result, err := services.Process(context.Background(), "write a python function that runs a command")
	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.False(t, result.Pool.AllPassed)
	assert.NotNil(t, result.Correction)
}

func TestProcess_AttachesOSSContextSnippetForKnownFramework(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Outcomes.DBPath = filepath.Join(dir, "outcomes.sqlite")
	cfg.Adaptive.HistoryPath = filepath.Join(dir, "adaptive_history.json")
	cfg.EnableOSSContext = true

	var captured *generation.Request
	client := fakeClient{code: "def f():\n    return 1\n", captureTarget: &captured}
	services, err := NewCoreServices(cfg, client, nil)
	require.NoError(t, err)
	t.Cleanup(func() { services.Close() })

	_, err = services.Process(context.Background(), "write a flask route handler")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Contains(t, captured.SystemPrompt, "flask")
}

func TestProcess_NoOSSContextSnippetWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Outcomes.DBPath = filepath.Join(dir, "outcomes.sqlite")
	cfg.Adaptive.HistoryPath = filepath.Join(dir, "adaptive_history.json")
	cfg.EnableOSSContext = false

	var captured *generation.Request
	client := fakeClient{code: "def f():\n    return 1\n", captureTarget: &captured}
	services, err := NewCoreServices(cfg, client, nil)
	require.NoError(t, err)
	t.Cleanup(func() { services.Close() })

	_, err = services.Process(context.Background(), "write a flask route handler")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Empty(t, captured.SystemPrompt)
}

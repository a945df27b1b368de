package router

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/types"
)

// hashEngine is a deterministic fake embedding engine for tests: it
// produces a one-hot-ish vector over a small fixed vocabulary so that
// similar queries land close together without any network dependency.
type hashEngine struct{}

var vocab = []string{"fix", "bug", "write", "function", "explain", "docker", "deploy"}

func (hashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab))
	for i, word := range vocab {
		if strings.Contains(lower, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (e hashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := e.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (hashEngine) Dimensions() int { return len(vocab) }
func (hashEngine) Name() string    { return "hash-test-engine" }

func TestNeuralRouter_RouteEmptyIndex(t *testing.T) {
	r := NewNeuralRouter(hashEngine{}, 3, "")
	_, ok := r.Route(context.Background(), "fix the bug")
	assert.False(t, ok)
}

func TestNeuralRouter_RouteAfterRetrain(t *testing.T) {
	r := NewNeuralRouter(hashEngine{}, 3, "")
	err := r.Retrain(context.Background(), []trainingExample{
		{Query: "fix this bug please", TaskType: types.TaskBugFix},
		{Query: "please fix the bug in auth", TaskType: types.TaskBugFix},
		{Query: "write a function for me", TaskType: types.TaskCodeGen},
	})
	require.NoError(t, err)

	match, ok := r.Route(context.Background(), "there is a bug, fix it")
	require.True(t, ok)
	assert.Equal(t, types.TaskBugFix, match.TaskType)
}

func TestNeuralRouter_RecordOutcomeGrowsIndex(t *testing.T) {
	r := NewNeuralRouter(hashEngine{}, 3, "")
	require.NoError(t, r.RecordOutcome(context.Background(), "write a function", types.TaskCodeGen))
	assert.Len(t, r.examples, 1)
	assert.Len(t, r.vectors, 1)
}

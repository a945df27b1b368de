package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"qwencode/internal/types"
)

type stubLLM struct {
	taskType types.TaskType
	err      error
}

func (s stubLLM) ClassifyTaskType(ctx context.Context, query string) (types.TaskType, error) {
	return s.taskType, s.err
}

func TestHybridRouter_PatternTierWins(t *testing.T) {
	h := NewHybridRouter(NewPatternMatcher(), nil, nil, 0.6)
	m := h.Route(context.Background(), "fix this crash")
	assert.Equal(t, types.TaskBugFix, m.TaskType)
}

func TestHybridRouter_FallsBackToNeuralTier(t *testing.T) {
	neural := NewNeuralRouter(hashEngine{}, 3, "")
	_ = neural.Retrain(context.Background(), []trainingExample{
		{Query: "explain how auth works", TaskType: types.TaskExplain},
		{Query: "explain the docker deploy process", TaskType: types.TaskExplain},
	})
	h := NewHybridRouter(NewPatternMatcherWithSets(nil), neural, nil, 0.3)
	m := h.Route(context.Background(), "explain docker")
	assert.Equal(t, types.TaskExplain, m.TaskType)
}

func TestHybridRouter_FallsBackToLLMTier(t *testing.T) {
	h := NewHybridRouter(NewPatternMatcherWithSets(nil), NewNeuralRouter(hashEngine{}, 3, ""), stubLLM{taskType: types.TaskInfra}, 0.6)
	m := h.Route(context.Background(), "something ambiguous entirely")
	assert.Equal(t, types.TaskInfra, m.TaskType)
}

func TestHybridRouter_AllTiersFailDefaultsGeneral(t *testing.T) {
	h := NewHybridRouter(NewPatternMatcherWithSets(nil), NewNeuralRouter(hashEngine{}, 3, ""), stubLLM{err: errors.New("down")}, 0.6)
	m := h.Route(context.Background(), "something ambiguous entirely")
	assert.Equal(t, types.TaskGeneral, m.TaskType)
	assert.Equal(t, 0.0, m.Confidence)
}

package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/types"
)

func TestDeepModeEscalator_SkipsWhenNotRequested(t *testing.T) {
	e := NewDeepModeEscalator(&fakeClient{}, 0.5, "deep-model")
	tc := &types.TaskContext{UseDeepMode: false}
	cand := &types.Candidate{ID: "c1", Code: "original"}

	result, err := e.MaybeEscalate(context.Background(), tc, cand, 0.1)
	require.NoError(t, err)
	assert.False(t, result.Escalated)
	assert.Equal(t, "original", cand.Code)
}

func TestDeepModeEscalator_SkipsWhenConfidenceMet(t *testing.T) {
	e := NewDeepModeEscalator(&fakeClient{}, 0.5, "deep-model")
	tc := &types.TaskContext{UseDeepMode: true}
	cand := &types.Candidate{ID: "c1", Code: "original"}

	result, err := e.MaybeEscalate(context.Background(), tc, cand, 0.9)
	require.NoError(t, err)
	assert.False(t, result.Escalated)
}

func TestDeepModeEscalator_EscalatesWhenLowConfidence(t *testing.T) {
	e := NewDeepModeEscalator(&fakeClient{}, 0.5, "deep-model")
	tc := &types.TaskContext{UseDeepMode: true, Query: "write something"}
	cand := &types.Candidate{ID: "c1", Code: "original", Temperature: 0.3}

	result, err := e.MaybeEscalate(context.Background(), tc, cand, 0.2)
	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, "deep", result.Tier)
	assert.Equal(t, "code at temp", cand.Code)
}

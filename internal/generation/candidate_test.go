package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/types"
)

type fakeClient struct {
	fail  map[float64]bool
	delay time.Duration

	mu        sync.Mutex
	seenSeeds []int64
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, req Request) (Response, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	if f.fail[req.Temperature] {
		return Response{}, errors.New("simulated failure")
	}
	f.mu.Lock()
	f.seenSeeds = append(f.seenSeeds, req.Seed)
	f.mu.Unlock()
	return Response{Code: "code at temp", Model: "fake-model"}, nil
}

func TestGenerator_AllSucceed(t *testing.T) {
	gen := NewGenerator(&fakeClient{}, 3, 5*time.Second)
	pool, err := gen.Generate(context.Background(), "task-1", "write hello world", "", types.GenerationPlan{
		NCandidates:  3,
		Temperatures: []float64{0.2, 0.5, 0.8},
	})
	require.NoError(t, err)
	assert.Len(t, pool.Candidates, 3)
}

func TestGenerator_PartialFailureStillReturnsPool(t *testing.T) {
	gen := NewGenerator(&fakeClient{fail: map[float64]bool{0.5: true}}, 3, 5*time.Second)
	pool, err := gen.Generate(context.Background(), "task-1", "query", "", types.GenerationPlan{
		NCandidates:  3,
		Temperatures: []float64{0.2, 0.5, 0.8},
	})
	require.NoError(t, err)
	assert.Len(t, pool.Candidates, 2)
}

func TestGenerator_AllFailReturnsError(t *testing.T) {
	gen := NewGenerator(&fakeClient{fail: map[float64]bool{0.2: true}}, 1, 5*time.Second)
	_, err := gen.Generate(context.Background(), "task-1", "query", "", types.GenerationPlan{
		NCandidates:  1,
		Temperatures: []float64{0.2},
	})
	require.Error(t, err)
	var genErr *types.GenerationFailedError
	assert.ErrorAs(t, err, &genErr)
}

func TestGenerator_PerCandidateTimeout(t *testing.T) {
	gen := NewGenerator(&fakeClient{delay: 50 * time.Millisecond}, 1, 10*time.Millisecond)
	_, err := gen.Generate(context.Background(), "task-1", "query", "", types.GenerationPlan{
		NCandidates:  1,
		Temperatures: []float64{0.2},
	})
	require.Error(t, err)
}

func TestCandidateSeed_DeterministicPerTaskAndIndex(t *testing.T) {
	assert.Equal(t, candidateSeed("task-1", 0), candidateSeed("task-1", 0))
	assert.NotEqual(t, candidateSeed("task-1", 0), candidateSeed("task-1", 1))
	assert.NotEqual(t, candidateSeed("task-1", 0), candidateSeed("task-2", 0))
}

func TestCandidateSeed_AlwaysNonNegative(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.GreaterOrEqual(t, candidateSeed("task-x", i), int64(0))
	}
}

func TestGenerator_AssignsDerivedSeedPerCandidate(t *testing.T) {
	client := &fakeClient{}
	gen := NewGenerator(client, 3, 5*time.Second)
	pool, err := gen.Generate(context.Background(), "task-seeded", "write hello world", "", types.GenerationPlan{
		NCandidates:  3,
		Temperatures: []float64{0.2, 0.5, 0.8},
	})
	require.NoError(t, err)
	require.Len(t, pool.Candidates, 3)

	seen := make(map[int64]bool)
	for i, c := range pool.Candidates {
		assert.Equal(t, candidateSeed("task-seeded", i), c.Seed)
		assert.False(t, seen[c.Seed], "seed must be distinct per candidate")
		seen[c.Seed] = true
	}
}

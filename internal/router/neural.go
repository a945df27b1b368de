package router

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"qwencode/internal/embedding"
	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// trainingExample is one labeled query used to seed and retrain the
// neural router's embedding index.
type trainingExample struct {
	Query    string         `json:"query"`
	TaskType types.TaskType `json:"task_type"`
}

// NeuralRouter classifies queries by embedding them and voting across the
// top-K most similar labeled examples in its index. It falls back to "no
// result" (ok=false) when the index is empty or the engine call fails;
// callers must not treat that as fatal.
type NeuralRouter struct {
	engine embedding.EmbeddingEngine
	topK   int

	mu        sync.RWMutex
	examples  []trainingExample
	vectors   [][]float32
	indexPath string
}

// NewNeuralRouter constructs a router around an embedding engine. indexPath,
// if non-empty, is where the labeled training index is persisted as JSON
// (queries only; vectors are recomputed on load since engines may change
// dimensionality across runs).
func NewNeuralRouter(engine embedding.EmbeddingEngine, topK int, indexPath string) *NeuralRouter {
	if topK <= 0 {
		topK = 5
	}
	return &NeuralRouter{engine: engine, topK: topK, indexPath: indexPath}
}

// Load reads the training index from disk and re-embeds every example.
// A missing file leaves the router with an empty index, which Route
// treats as "no result" rather than an error.
func (r *NeuralRouter) Load(ctx context.Context) error {
	if r.indexPath == "" {
		return nil
	}
	data, err := os.ReadFile(r.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading neural router index: %w", err)
	}

	var examples []trainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return fmt.Errorf("parsing neural router index: %w", err)
	}
	return r.Retrain(ctx, examples)
}

// Save persists the current training examples (not vectors) to indexPath.
func (r *NeuralRouter) Save() error {
	if r.indexPath == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := json.MarshalIndent(r.examples, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling neural router index: %w", err)
	}
	return os.WriteFile(r.indexPath, data, 0644)
}

// Retrain replaces the index with a fresh set of labeled examples,
// re-embedding all of them. It is safe to call concurrently with Route;
// the swap is atomic under the write lock.
func (r *NeuralRouter) Retrain(ctx context.Context, examples []trainingExample) error {
	vectors := make([][]float32, len(examples))
	for i, ex := range examples {
		v, err := r.engine.Embed(ctx, ex.Query)
		if err != nil {
			return fmt.Errorf("embedding training example %d: %w", i, err)
		}
		vectors[i] = v
	}

	r.mu.Lock()
	r.examples = examples
	r.vectors = vectors
	r.mu.Unlock()

	logging.Router("neural router retrained with %d examples", len(examples))
	return nil
}

// RecordOutcome appends a new labeled example to the in-memory index so
// future Route calls can benefit from it. Callers are expected to call
// Save (or rely on a periodic retrain-router run) to persist it.
func (r *NeuralRouter) RecordOutcome(ctx context.Context, query string, taskType types.TaskType) error {
	v, err := r.engine.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding outcome query: %w", err)
	}

	r.mu.Lock()
	r.examples = append(r.examples, trainingExample{Query: query, TaskType: taskType})
	r.vectors = append(r.vectors, v)
	r.mu.Unlock()
	return nil
}

// Route embeds query and returns the majority task type among the top-K
// nearest labeled examples, weighted by similarity. ok is false when the
// index is empty or similarity is too diffuse to trust (best match below
// 0.3 cosine similarity).
func (r *NeuralRouter) Route(ctx context.Context, query string) (Match, bool) {
	r.mu.RLock()
	vectors := r.vectors
	examples := r.examples
	r.mu.RUnlock()

	if len(vectors) == 0 {
		return Match{}, false
	}

	qv, err := r.engine.Embed(ctx, query)
	if err != nil {
		logging.RouterWarn("neural router embed failed: %v", err)
		return Match{}, false
	}

	results, err := embedding.FindTopK(qv, vectors, r.topK)
	if err != nil {
		logging.RouterWarn("neural router FindTopK failed: %v", err)
		return Match{}, false
	}
	if len(results) == 0 || results[0].Similarity < 0.3 {
		return Match{}, false
	}

	votes := make(map[types.TaskType]float64)
	for _, res := range results {
		votes[examples[res.Index].TaskType] += res.Similarity
	}

	var best types.TaskType
	var bestScore, totalScore float64
	for tt, score := range votes {
		totalScore += score
		if score > bestScore {
			bestScore = score
			best = tt
		}
	}
	if totalScore == 0 {
		return Match{}, false
	}

	confidence := bestScore / totalScore
	logging.RouterDebug("neural router voted %s with confidence %.3f over %d neighbors", best, confidence, len(results))
	return Match{TaskType: best, Confidence: confidence}, true
}

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  min_confidence: 0.5\n"), 0644))

	var mu sync.Mutex
	var seen *Config
	w, err := NewWatcher(path, func(c *Config) {
		mu.Lock()
		seen = c
		mu.Unlock()
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("router:\n  min_confidence: 0.9\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen != nil && seen.Router.MinConfidence == 0.9
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  min_confidence: 0.5\n"), 0644))

	var mu sync.Mutex
	called := false
	w, err := NewWatcher(path, func(c *Config) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0644))
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called)
}

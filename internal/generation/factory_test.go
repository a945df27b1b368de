package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qwencode/internal/config"
)

func TestNewClientFromConfig_Anthropic(t *testing.T) {
	client, err := NewClientFromConfig(&config.GenerationConfig{Engine: "api", Provider: "anthropic"}, "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.Name())
}

func TestNewClientFromConfig_ClaudeCLI(t *testing.T) {
	client, err := NewClientFromConfig(&config.GenerationConfig{Engine: "claude-cli"}, "")
	require.NoError(t, err)
	assert.Equal(t, "claude-cli", client.Name())
}

func TestNewClientFromConfig_UnknownProvider(t *testing.T) {
	_, err := NewClientFromConfig(&config.GenerationConfig{Engine: "api", Provider: "unknown"}, "key")
	require.Error(t, err)
}

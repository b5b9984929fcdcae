package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/config"
)

func TestNewUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New("gemini", config.ProvidersConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New("anthropic", config.ProvidersConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New("openai", config.ProvidersConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewResolvesProviders(t *testing.T) {
	t.Parallel()

	cfg := config.ProvidersConfig{
		Anthropic: config.AnthropicConfig{Key: "test-key"},
		OpenAI:    config.OpenAIConfig{Key: "test-key"},
	}

	p, err := New("anthropic", cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = New("openai", cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

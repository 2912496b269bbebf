package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryConstructsOncePerKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	r := NewRegistry()

	a, err := r.Get("anthropic", "claude-sonnet-4-20250514")
	require.NoError(t, err)
	b, err := r.Get("anthropic", "claude-sonnet-4-20250514")
	require.NoError(t, err)
	assert.Same(t, a, b, "same (provider, model) must reuse the instance")

	c, err := r.Get("anthropic", "claude-haiku-3-5")
	require.NoError(t, err)
	assert.NotSame(t, a, c, "different model is a different instance")
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("cohere", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
	assert.Contains(t, err.Error(), "cohere")
}

func TestRegistryMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	r := NewRegistry()
	_, err := r.Get("openai", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestRegistryGoogleAlias(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	r := NewRegistry()

	a, err := r.Get("gemini", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", a.Name())

	b, err := r.Get("google", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", b.Name())
}

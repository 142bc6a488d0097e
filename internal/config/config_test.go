package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("DISCOVERY_TIMEOUT", "750ms")
	t.Setenv("DEFAULT_TEMPERATURE", "0.2")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("PROVIDERS_FILE", "")

	cfg := Load()

	assert.Equal(t, "9999", cfg.App.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Session.DiscoveryTimeout)
	assert.InDelta(t, 0.2, cfg.Session.DefaultTemperature, 1e-9)
	assert.Equal(t, "gsk-test", cfg.Providers.Groq.APIKey)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Providers.Groq.BaseURL)
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("SESSION_SEND_BUFFER", "lots")
	t.Setenv("DISCOVERY_TIMEOUT", "soon")
	t.Setenv("PROVIDERS_FILE", "")

	cfg := Load()

	assert.Equal(t, 256, cfg.Session.SendBufferSize)
	assert.Equal(t, 5*time.Second, cfg.Session.DiscoveryTimeout)
}

func TestProvidersMergeFileOverlaysNonEmptyValues(t *testing.T) {
	t.Setenv("TEST_HF_KEY", "hf-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openai:
  api_key: sk-file
huggingface:
  api_key: ${TEST_HF_KEY}
  models:
    - meta-llama/Llama-3.1-8B-Instruct
ollama:
  base_url: http://ollama:11434
`), 0o600))

	p := ProvidersConfig{
		OpenAI: ProviderSettings{APIKey: "sk-env", BaseURL: "https://example.test/v1"},
	}
	require.NoError(t, p.MergeFile(path))

	assert.Equal(t, "sk-file", p.OpenAI.APIKey)
	assert.Equal(t, "https://example.test/v1", p.OpenAI.BaseURL)
	assert.Equal(t, "hf-from-env", p.HuggingFace.APIKey)
	assert.Equal(t, []string{"meta-llama/Llama-3.1-8B-Instruct"}, p.HuggingFace.Models)
	assert.Equal(t, "http://ollama:11434", p.Ollama.BaseURL)
}

func TestProvidersMergeRejectsInvalidYAML(t *testing.T) {
	var p ProvidersConfig
	assert.Error(t, p.Merge([]byte("openai: [unterminated")))
}

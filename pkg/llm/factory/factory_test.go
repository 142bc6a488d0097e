package factory

import (
	"context"
	"testing"

	"ai-search-be/internal/config"
	"ai-search-be/pkg/llm/gemini"
	"ai-search-be/pkg/llm/ollama"
	"ai-search-be/pkg/llm/openaicompat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewLLMProvider(ctx, TypeOllama, "llama3", config.ProviderSettings{BaseURL: "http://ollama:11434"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, p)

	for _, kind := range []string{TypeOpenAI, TypeGroq, TypeAnthropic, TypeHuggingFace} {
		p, err = NewLLMProvider(ctx, kind, "m", config.ProviderSettings{APIKey: "k"})
		require.NoError(t, err, kind)
		assert.IsType(t, &openaicompat.Provider{}, p, kind)
	}

	p, err = NewLLMProvider(ctx, TypeGemini, "gemini-2.0-flash", config.ProviderSettings{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &gemini.Provider{}, p)
}

func TestNewLLMProviderErrors(t *testing.T) {
	_, err := NewLLMProvider(context.Background(), "mystery", "m", config.ProviderSettings{})
	assert.ErrorContains(t, err, "unsupported LLM provider")

	_, err = NewLLMProvider(context.Background(), TypeGemini, "m", config.ProviderSettings{})
	assert.Error(t, err)
}

func TestNewCustomProvider(t *testing.T) {
	p := NewCustomProvider("https://llm.example/v1", "sk", "my-model")
	require.IsType(t, &openaicompat.Provider{}, p)
	assert.Equal(t, "my-model", p.(*openaicompat.Provider).Model())
}

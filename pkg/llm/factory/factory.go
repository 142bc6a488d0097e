package factory

import (
	"ai-search-be/internal/config"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/llm/gemini"
	"ai-search-be/pkg/llm/ollama"
	"ai-search-be/pkg/llm/openaicompat"
	"context"
	"fmt"
)

const (
	TypeOpenAI      = "openai"
	TypeGroq        = "groq"
	TypeOllama      = "ollama"
	TypeAnthropic   = "anthropic"
	TypeGemini      = "gemini"
	TypeHuggingFace = "huggingface"
)

// NewLLMProvider builds a chat handle for one model of a configured provider.
func NewLLMProvider(ctx context.Context, providerType, modelName string, settings config.ProviderSettings) (llm.LLMProvider, error) {
	switch providerType {
	case TypeOllama:
		return ollama.NewOllamaProvider(settings.BaseURL, modelName), nil
	case TypeOpenAI, TypeGroq, TypeAnthropic, TypeHuggingFace:
		return openaicompat.NewProvider(openaicompat.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   modelName,
		}), nil
	case TypeGemini:
		client, err := gemini.NewClient(ctx, settings.APIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewProvider(client, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewCustomProvider builds a handle for a caller-supplied OpenAI-compatible
// endpoint.
func NewCustomProvider(baseURL, apiKey, modelName string) llm.LLMProvider {
	return openaicompat.NewProvider(openaicompat.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}

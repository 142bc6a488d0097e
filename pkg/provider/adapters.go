package provider

import (
	"ai-search-be/internal/config"
	"ai-search-be/pkg/embedding"
	"ai-search-be/pkg/embedding/jina"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/llm/factory"
	"ai-search-be/pkg/llm/gemini"
	"ai-search-be/pkg/llm/ollama"
	"ai-search-be/pkg/llm/openaicompat"
	"context"
	"fmt"
	"net/http"
	"strings"
)

var (
	anthropicModels = []string{
		"claude-sonnet-4-5",
		"claude-opus-4-1",
		"claude-3-5-haiku-latest",
	}
	huggingFaceModels = []string{
		"meta-llama/Llama-3.1-8B-Instruct",
		"Qwen/Qwen2.5-72B-Instruct",
	}
	openAIEmbeddingModels = []string{"text-embedding-3-small", "text-embedding-3-large"}
	openAIChatPrefixes    = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}
)

// ChatAdapters returns the chat adapters in catalog order.
func ChatAdapters(cfg config.ProvidersConfig) []Adapter[llm.LLMProvider] {
	return []Adapter[llm.LLMProvider]{
		remoteChatAdapter(factory.TypeOpenAI, cfg.OpenAI, func(id string) bool {
			return hasAnyPrefix(id, openAIChatPrefixes) && !strings.Contains(id, "audio") && !strings.Contains(id, "realtime")
		}),
		remoteChatAdapter(factory.TypeGroq, cfg.Groq, func(id string) bool {
			return !strings.Contains(id, "whisper") && !strings.Contains(id, "tts")
		}),
		ollamaChatAdapter(cfg.Ollama),
		staticChatAdapter(factory.TypeAnthropic, cfg.Anthropic, anthropicModels),
		geminiChatAdapter(cfg.Gemini),
		staticChatAdapter(factory.TypeHuggingFace, cfg.HuggingFace, huggingFaceModels),
	}
}

// EmbeddingAdapters returns the embedding adapters in catalog order.
func EmbeddingAdapters(cfg config.ProvidersConfig) []Adapter[embedding.Embedder] {
	return []Adapter[embedding.Embedder]{
		AdapterFunc[embedding.Embedder]{Provider: "openai", Fn: func(ctx context.Context) ([]Model[embedding.Embedder], error) {
			if cfg.OpenAI.APIKey == "" {
				return nil, ErrNotConfigured
			}
			return models(orDefault(cfg.OpenAI.Models, openAIEmbeddingModels), func(name string) (embedding.Embedder, error) {
				return embedding.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, name), nil
			})
		}},
		AdapterFunc[embedding.Embedder]{Provider: "ollama", Fn: func(ctx context.Context) ([]Model[embedding.Embedder], error) {
			if cfg.Ollama.BaseURL == "" {
				return nil, ErrNotConfigured
			}
			names, err := ollamaModels(ctx, cfg.Ollama.BaseURL, isEmbeddingModel)
			if err != nil {
				return nil, err
			}
			return models(names, func(name string) (embedding.Embedder, error) {
				return embedding.NewOllamaProvider(cfg.Ollama.BaseURL, name), nil
			})
		}},
		AdapterFunc[embedding.Embedder]{Provider: "gemini", Fn: func(ctx context.Context) ([]Model[embedding.Embedder], error) {
			client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey)
			if err != nil {
				return nil, ErrNotConfigured
			}
			return models([]string{embedding.GeminiDefaultModel}, func(name string) (embedding.Embedder, error) {
				return embedding.NewGeminiProvider(client, name), nil
			})
		}},
		AdapterFunc[embedding.Embedder]{Provider: "jina", Fn: func(ctx context.Context) ([]Model[embedding.Embedder], error) {
			if cfg.Jina.APIKey == "" {
				return nil, ErrNotConfigured
			}
			return models(orDefault(cfg.Jina.Models, []string{jina.DefaultModel}), func(name string) (embedding.Embedder, error) {
				return jina.NewJinaProvider(cfg.Jina.APIKey, cfg.Jina.BaseURL, name), nil
			})
		}},
	}
}

func chatHandle(ctx context.Context, kind string, settings config.ProviderSettings) func(string) (llm.LLMProvider, error) {
	return func(name string) (llm.LLMProvider, error) {
		return factory.NewLLMProvider(ctx, kind, name, settings)
	}
}

// remoteChatAdapter lists models from an OpenAI-compatible /models endpoint.
// A configured model list skips the remote call.
func remoteChatAdapter(kind string, settings config.ProviderSettings, keep func(string) bool) Adapter[llm.LLMProvider] {
	return AdapterFunc[llm.LLMProvider]{Provider: kind, Fn: func(ctx context.Context) ([]Model[llm.LLMProvider], error) {
		if settings.APIKey == "" {
			return nil, ErrNotConfigured
		}
		names := settings.Models
		if len(names) == 0 {
			ids, err := openaicompat.ListModels(ctx, openaicompat.Config{APIKey: settings.APIKey, BaseURL: settings.BaseURL})
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if keep(id) {
					names = append(names, id)
				}
			}
		}
		return models(names, chatHandle(ctx, kind, settings))
	}}
}

func staticChatAdapter(kind string, settings config.ProviderSettings, defaults []string) Adapter[llm.LLMProvider] {
	return AdapterFunc[llm.LLMProvider]{Provider: kind, Fn: func(ctx context.Context) ([]Model[llm.LLMProvider], error) {
		if settings.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return models(orDefault(settings.Models, defaults), chatHandle(ctx, kind, settings))
	}}
}

func ollamaChatAdapter(settings config.ProviderSettings) Adapter[llm.LLMProvider] {
	return AdapterFunc[llm.LLMProvider]{Provider: factory.TypeOllama, Fn: func(ctx context.Context) ([]Model[llm.LLMProvider], error) {
		if settings.BaseURL == "" {
			return nil, ErrNotConfigured
		}
		names, err := ollamaModels(ctx, settings.BaseURL, func(name string) bool { return !isEmbeddingModel(name) })
		if err != nil {
			return nil, err
		}
		return models(names, chatHandle(ctx, factory.TypeOllama, settings))
	}}
}

func geminiChatAdapter(settings config.ProviderSettings) Adapter[llm.LLMProvider] {
	return AdapterFunc[llm.LLMProvider]{Provider: factory.TypeGemini, Fn: func(ctx context.Context) ([]Model[llm.LLMProvider], error) {
		client, err := gemini.NewClient(ctx, settings.APIKey)
		if err != nil {
			return nil, ErrNotConfigured
		}
		names := settings.Models
		if len(names) == 0 {
			infos, err := gemini.ListModels(ctx, client)
			if err != nil {
				return nil, err
			}
			for _, m := range infos {
				if m.Supports("generateContent") && strings.HasPrefix(m.Name, "gemini") {
					names = append(names, m.Name)
				}
			}
		}
		return models(names, func(name string) (llm.LLMProvider, error) {
			return gemini.NewProvider(client, name), nil
		})
	}}
}

func ollamaModels(ctx context.Context, baseURL string, keep func(string) bool) ([]string, error) {
	infos, err := ollama.ListModels(ctx, http.DefaultClient, baseURL)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range infos {
		if keep(m.Name) {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func isEmbeddingModel(name string) bool {
	return strings.Contains(strings.ToLower(name), "embed")
}

func models[H any](names []string, build func(string) (H, error)) ([]Model[H], error) {
	out := make([]Model[H], 0, len(names))
	for _, name := range names {
		handle, err := build(name)
		if err != nil {
			return nil, fmt.Errorf("build handle for %s: %w", name, err)
		}
		out = append(out, Model[H]{Name: name, DisplayName: name, Handle: handle})
	}
	return out, nil
}

func orDefault(configured, defaults []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return defaults
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

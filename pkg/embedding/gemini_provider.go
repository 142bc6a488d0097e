package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const GeminiDefaultModel = "text-embedding-004"

type GeminiProvider struct {
	client *genai.Client
	model  string
}

var _ Embedder = &GeminiProvider{}

func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = GeminiDefaultModel
	}
	return &GeminiProvider{client: client, model: model}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}}
	var cfg *genai.EmbedContentConfig
	if taskType != "" {
		cfg = &genai.EmbedContentConfig{TaskType: taskType}
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("genai embed: no embedding returned for model %s", p.model)
	}
	return resp.Embeddings[0].Values, nil
}

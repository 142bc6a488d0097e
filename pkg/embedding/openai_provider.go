package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const OpenAIDefaultModel = "text-embedding-3-small"

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

var _ Embedder = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = OpenAIDefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:          p.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: no embedding returned for model %s", p.model)
	}
	return toFloat32s(resp.Data[0].Embedding), nil
}

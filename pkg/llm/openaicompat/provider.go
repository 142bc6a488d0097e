// Package openaicompat talks to any endpoint that speaks the OpenAI chat
// completions API: OpenAI itself, Groq, the Hugging Face router, Anthropic's
// compatibility layer and user-supplied custom endpoints.
package openaicompat

import (
	"ai-search-be/pkg/llm"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Provider struct {
	client *openai.Client
	model  string
}

var _ llm.LLMProvider = &Provider{}

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func clientOptions(cfg Config) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	// Callers decide about retries; a failed stream is reported, not replayed.
	opts = append(opts, option.WithMaxRetries(0))
	return opts
}

func NewProvider(cfg Config) *Provider {
	client := openai.NewClient(clientOptions(cfg)...)
	return &Provider{client: &client, model: cfg.Model}
}

func (p *Provider) Model() string { return p.model }

func (p *Provider) params(history []llm.Message, opts []llm.Option) openai.ChatCompletionNewParams {
	options := llm.Apply(llm.Options{Model: p.model}, opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch llm.NormalizeRole(msg.Role) {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    options.Model,
		Messages: messages,
	}
	if options.Temperature > 0 {
		params.Temperature = openai.Float(options.Temperature)
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	return params
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(history, opts))
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *Provider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.TokenEvent, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(history, opts))
	// The first Next surfaces HTTP and auth failures before we hand out a channel.
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil || errors.Is(err, io.EOF) {
			err = errors.New("openai stream: empty response")
		}
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	ch := make(chan llm.TokenEvent, 32)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					if !llm.Emit(ctx, ch, llm.TokenEvent{Delta: delta}) {
						return
					}
				}
			}
			if !stream.Next() {
				break
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			llm.Emit(ctx, ch, llm.TokenEvent{Err: fmt.Errorf("openai stream: %w", err)})
		}
	}()
	return ch, nil
}

// ListModels returns the model ids the endpoint advertises.
func ListModels(ctx context.Context, cfg Config) ([]string, error) {
	client := openai.NewClient(clientOptions(cfg)...)
	iter := client.Models.ListAutoPaging(ctx)

	var ids []string
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return ids, nil
}

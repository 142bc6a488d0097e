package gemini

import (
	"ai-search-be/pkg/llm"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

type Provider struct {
	client *genai.Client
	model  string
}

var _ llm.LLMProvider = &Provider{}

func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return client, nil
}

func NewProvider(client *genai.Client, model string) *Provider {
	return &Provider{client: client, model: model}
}

// convert splits system messages into the system instruction and maps the
// remaining turns onto Gemini's user/model roles.
func convert(history []llm.Message, options llm.Options) (*genai.GenerateContentConfig, []*genai.Content) {
	cfg := &genai.GenerateContentConfig{}
	if options.Temperature > 0 {
		temp := float32(options.Temperature)
		cfg.Temperature = &temp
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}

	var (
		system   []*genai.Part
		contents []*genai.Content
	)
	for _, msg := range history {
		switch llm.NormalizeRole(msg.Role) {
		case llm.RoleSystem:
			system = append(system, &genai.Part{Text: msg.Content})
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	return cfg, contents
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func (p *Provider) modelFor(options llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return p.model
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{}, opts...)
	cfg, contents := convert(history, options)
	if len(contents) == 0 {
		return "", errors.New("gemini: no contents")
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.modelFor(options), contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	return candidateText(resp), nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *Provider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.TokenEvent, error) {
	options := llm.Apply(llm.Options{}, opts...)
	cfg, contents := convert(history, options)
	if len(contents) == 0 {
		return nil, errors.New("gemini: no contents")
	}

	ch := make(chan llm.TokenEvent, 32)
	go func() {
		defer close(ch)
		pull(ctx, ch, p.client.Models.GenerateContentStream(ctx, p.modelFor(options), contents, cfg))
	}()
	return ch, nil
}

func pull(ctx context.Context, ch chan<- llm.TokenEvent, seq iter.Seq2[*genai.GenerateContentResponse, error]) {
	for chunk, err := range seq {
		if err != nil {
			llm.Emit(ctx, ch, llm.TokenEvent{Err: fmt.Errorf("genai stream: %w", err)})
			return
		}
		if text := candidateText(chunk); text != "" {
			if !llm.Emit(ctx, ch, llm.TokenEvent{Delta: text}) {
				return
			}
		}
		if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason == genai.FinishReasonSafety {
			llm.Emit(ctx, ch, llm.TokenEvent{Err: errors.New("genai stream: blocked by safety filter")})
			return
		}
	}
}

// ModelInfo is the part of a Gemini model listing the catalog needs.
type ModelInfo struct {
	Name        string
	DisplayName string
	Actions     []string
}

// ListModels pages through every model visible to the key.
func ListModels(ctx context.Context, client *genai.Client) ([]ModelInfo, error) {
	var out []ModelInfo
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("genai list models: %w", err)
		}
		out = append(out, ModelInfo{
			Name:        strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Actions:     m.SupportedActions,
		})
	}
	return out, nil
}

// Supports reports whether the model advertises action, e.g. "generateContent".
func (m ModelInfo) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

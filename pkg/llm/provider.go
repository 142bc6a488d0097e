package llm

import (
	"context"
	"strings"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NormalizeRole maps the role names clients send in history ("human", "ai",
// "model") onto the three roles providers understand.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "human", "user":
		return RoleUser
	case "ai", "assistant", "model", "bot":
		return RoleAssistant
	case "system":
		return RoleSystem
	default:
		return RoleUser
	}
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply builds Options from defaults and opts.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// TokenEvent is one increment of a streamed completion.
// A non-nil Err ends the stream.
type TokenEvent struct {
	Delta string
	Err   error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// Stream yields token deltas on the returned channel, which is closed when
	// the completion ends. Implementations stop promptly when ctx is done.
	Stream(ctx context.Context, history []Message, options ...Option) (<-chan TokenEvent, error)
}

// Collect drains a stream into a single string.
func Collect(ctx context.Context, events <-chan TokenEvent) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return sb.String(), nil
			}
			if ev.Err != nil {
				return sb.String(), ev.Err
			}
			sb.WriteString(ev.Delta)
		}
	}
}

// Emit sends ev unless ctx is done first.
func Emit(ctx context.Context, ch chan<- TokenEvent, ev TokenEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

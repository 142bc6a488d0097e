// Package generation produces the answer for one request: sources, streamed
// text and follow-up suggestions.
package generation

import (
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/negotiator"
	"ai-search-be/pkg/protocol"
	"context"
	"strings"
)

// Event is one step of an answer. Exactly one field is set.
type Event struct {
	Text        string
	Sources     []protocol.Source
	Suggestions []string
	Err         error
}

type Request struct {
	MessageID          string
	ChatID             string
	Query              string
	History            []llm.Message
	FocusMode          string
	OptimizationMode   string
	Files              []string
	SystemInstructions string
}

// RequestFrom converts a decoded client request.
func RequestFrom(r protocol.Request) Request {
	history := make([]llm.Message, 0, len(r.History))
	for _, turn := range r.History {
		history = append(history, llm.Message{Role: llm.NormalizeRole(turn[0]), Content: turn[1]})
	}
	return Request{
		MessageID:          r.Message.MessageID,
		ChatID:             r.Message.ChatID,
		Query:              r.Message.Content,
		History:            history,
		FocusMode:          r.FocusMode,
		OptimizationMode:   r.OptimizationMode,
		Files:              r.Files,
		SystemInstructions: r.SystemInstructions,
	}
}

// Engine answers requests. The returned channel is closed when the answer is
// finished; an Event with Err ends it early. Implementations stop when ctx is
// cancelled.
type Engine interface {
	Answer(ctx context.Context, b negotiator.Bindings, req Request) (<-chan Event, error)
}

// FormatHistory renders history as "role: content" lines.
func FormatHistory(history []llm.Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

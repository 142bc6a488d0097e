package generation

import (
	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/negotiator"
	"ai-search-be/pkg/protocol"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	FocusWebSearch = "webSearch"

	maxSuggestions = 5
)

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s+`)

// LLMEngine is the default Engine: retrieve, stream the answer through the
// negotiated chat model, then ask it for follow-up questions.
type LLMEngine struct {
	retrievers map[string]Retriever
	fallback   Retriever
	logger     logger.ILogger
}

func NewLLMEngine(log logger.ILogger) *LLMEngine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &LLMEngine{
		retrievers: make(map[string]Retriever),
		fallback:   NoopRetriever{},
		logger:     log,
	}
}

// WithRetriever routes a focus mode to r.
func (e *LLMEngine) WithRetriever(focusMode string, r Retriever) *LLMEngine {
	e.retrievers[focusMode] = r
	return e
}

func (e *LLMEngine) retriever(focusMode string) Retriever {
	if r, ok := e.retrievers[focusMode]; ok {
		return r
	}
	return e.fallback
}

func (e *LLMEngine) Answer(ctx context.Context, b negotiator.Bindings, req Request) (<-chan Event, error) {
	if b.Chat.Handle == nil {
		return nil, errors.New("generation: no chat model bound")
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		e.run(ctx, b, req, ch)
	}()
	return ch, nil
}

func (e *LLMEngine) run(ctx context.Context, b negotiator.Bindings, req Request, ch chan<- Event) {
	sources, err := e.retriever(req.FocusMode).Retrieve(ctx, req.Query, req.History, b.Embedding.Handle)
	if err != nil {
		send(ctx, ch, Event{Err: fmt.Errorf("retrieve sources: %w", err)})
		return
	}
	if len(sources) > 0 {
		if !send(ctx, ch, Event{Sources: sources}) {
			return
		}
	}

	tokens, err := b.Chat.Handle.Stream(ctx, buildMessages(req, sources), b.Chat.Params.Options()...)
	if err != nil {
		send(ctx, ch, Event{Err: fmt.Errorf("start completion: %w", err)})
		return
	}

	var answer strings.Builder
	for tok := range tokens {
		if tok.Err != nil {
			send(ctx, ch, Event{Err: tok.Err})
			return
		}
		answer.WriteString(tok.Delta)
		if !send(ctx, ch, Event{Text: tok.Delta}) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	suggestions, err := e.suggest(ctx, b, req, answer.String())
	if err != nil {
		e.logger.Warn("GENERATION", "Suggestion generation failed", map[string]interface{}{
			"message_id": req.MessageID,
			"error":      err.Error(),
		})
		return
	}
	if len(suggestions) > 0 {
		send(ctx, ch, Event{Suggestions: suggestions})
	}
}

func buildMessages(req Request, sources []protocol.Source) []llm.Message {
	var system strings.Builder
	system.WriteString("You are a search assistant. Answer the user's question accurately and concisely.\n")
	if len(sources) > 0 {
		system.WriteString("Cite the numbered sources you use as [n].\n\n<sources>\n")
		for i, s := range sources {
			fmt.Fprintf(&system, "[%d] %s (%s)\n%s\n\n", i+1, s.Metadata.Title, s.Metadata.URL, s.PageContent)
		}
		system.WriteString("</sources>\n")
	}
	if req.SystemInstructions != "" {
		system.WriteString("\n<user_instructions>\n")
		system.WriteString(req.SystemInstructions)
		system.WriteString("\n</user_instructions>\n")
	}

	msgs := make([]llm.Message, 0, len(req.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system.String()})
	msgs = append(msgs, req.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Query})
	return msgs
}

func (e *LLMEngine) suggest(ctx context.Context, b negotiator.Bindings, req Request, answer string) ([]string, error) {
	history := append(append([]llm.Message{}, req.History...),
		llm.Message{Role: llm.RoleUser, Content: req.Query},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)

	var prompt strings.Builder
	prompt.WriteString("Suggest up to 4 short follow-up questions the user could ask next, one per line, ")
	prompt.WriteString("wrapped in <suggestions></suggestions>.\n\nConversation:\n")
	prompt.WriteString(FormatHistory(history))

	out, err := b.Chat.Handle.Generate(ctx, prompt.String(), b.Chat.Params.Options()...)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(out), nil
}

// ParseSuggestions extracts one suggestion per line, preferring the content of
// a <suggestions> block when present.
func ParseSuggestions(out string) []string {
	if start := strings.Index(out, "<suggestions>"); start >= 0 {
		out = out[start+len("<suggestions>"):]
		if end := strings.Index(out, "</suggestions>"); end >= 0 {
			out = out[:end]
		}
	}

	var suggestions []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

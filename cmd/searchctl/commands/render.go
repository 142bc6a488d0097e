package commands

import (
	"fmt"
	"io"

	"ai-search-be/pkg/assembler"
	"ai-search-be/pkg/events"
	"ai-search-be/pkg/provider"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
	errorColor  = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

func printCatalog(w io.Writer, title string, summary []provider.ProviderSummary) {
	headerColor.Fprintln(w, title)
	for _, p := range summary {
		if p.Provider == provider.CustomProvider {
			nameColor.Fprintf(w, "  %s", p.Provider)
			dimColor.Fprintln(w, "  (any model, needs --openai-url and --openai-key)")
			continue
		}
		nameColor.Fprintf(w, "  %s\n", p.Provider)
		for _, m := range p.Models {
			if m.DisplayName != "" && m.DisplayName != m.Name {
				fmt.Fprintf(w, "    %s ", m.Name)
				dimColor.Fprintf(w, "(%s)\n", m.DisplayName)
				continue
			}
			fmt.Fprintf(w, "    %s\n", m.Name)
		}
	}
}

// printAnswer renders a finished message: text with linked citations, the
// numbered sources and any suggestions.
func printAnswer(w io.Writer, msg assembler.Message) {
	if msg.Status == assembler.StatusErrored && msg.Err != nil {
		errorColor.Fprintf(w, "%s: %s\n", msg.Err.Key, msg.Err.Message)
		return
	}

	fmt.Fprintln(w, assembler.LinkCitations(msg.Text, msg.Sources))

	if len(msg.Sources) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Sources")
		for i, src := range msg.Sources {
			title := src.Metadata.Title
			if title == "" {
				title = src.Metadata.URL
			}
			fmt.Fprintf(w, "  [%d] %s ", i+1, title)
			dimColor.Fprintln(w, src.Metadata.URL)
		}
	}

	if len(msg.Suggestions) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Related")
		for _, s := range msg.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

func printEvent(w io.Writer, e events.Event) {
	c := nameColor
	switch e.EventType() {
	case events.SessionFailed, events.StreamFailed:
		c = errorColor
	case events.StreamRejected:
		c = warnColor
	}
	dimColor.Fprintf(w, "%s ", e.Timestamp().Format("15:04:05.000"))
	c.Fprintf(w, "%-17s", e.EventType())

	payload := e.Payload()
	if id, ok := payload["session_id"]; ok {
		fmt.Fprintf(w, " session=%v", id)
	}
	for _, key := range []string{"message_id", "chat_provider", "chat_model", "code", "error"} {
		if v, ok := payload[key]; ok {
			fmt.Fprintf(w, " %s=%v", key, v)
		}
	}
	fmt.Fprintln(w)
}

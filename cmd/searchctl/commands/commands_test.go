package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-search-be/pkg/assembler"
	"ai-search-be/pkg/events"
	"ai-search-be/pkg/protocol"
	"ai-search-be/pkg/provider"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestWsURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:3001/api/ws", wsURL("http://localhost:3001/"))
	assert.Equal(t, "wss://search.example.com/api/ws", wsURL("https://search.example.com"))
}

func TestConnectURLSkipsEmptyParams(t *testing.T) {
	u := connectURL("ws://h/api/ws", protocol.Params{ChatModelProvider: "ollama", ChatModel: "llama3"}, "")
	assert.Equal(t, "ws://h/api/ws?chatModel=llama3&chatModelProvider=ollama", u)
	assert.Equal(t, "ws://h/api/ws", connectURL("ws://h/api/ws", protocol.Params{}, ""))
}

func TestPrintAnswerLinksCitations(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, assembler.Message{
		Text:        "Paris [1].",
		Sources:     []protocol.Source{{Metadata: protocol.SourceMetadata{URL: "https://a", Title: "A"}}},
		Suggestions: []string{"What about Lyon?"},
		Status:      assembler.StatusComplete,
	})
	out := buf.String()
	assert.Contains(t, out, "Paris [1](https://a).")
	assert.Contains(t, out, "[1] A https://a")
	assert.Contains(t, out, "- What about Lyon?")

	buf.Reset()
	printAnswer(&buf, assembler.Message{
		Status: assembler.StatusErrored,
		Err:    &protocol.ErrorInfo{Key: protocol.CodeGenerationFailed, Message: "boom"},
	})
	assert.Equal(t, "GENERATION_FAILED: boom\n", buf.String())
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	printCatalog(&buf, "Chat models", []provider.ProviderSummary{
		{Provider: "ollama", Models: []provider.ModelSummary{{Name: "llama3", DisplayName: "llama3"}}},
		{Provider: provider.CustomProvider},
	})
	out := buf.String()
	assert.Contains(t, out, "  ollama\n    llama3\n")
	assert.Contains(t, out, provider.CustomProvider)
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, events.NewSessionEvent(events.StreamFailed, "s-1", map[string]interface{}{"message_id": "m1", "error": "boom"}))
	out := buf.String()
	assert.Contains(t, out, events.StreamFailed)
	assert.Contains(t, out, "session=s-1")
	assert.Contains(t, out, "message_id=m1 error=boom")
}

func scriptedServer(t *testing.T, frames func(id string) []protocol.Frame) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(protocol.Ready())
		var req protocol.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		for _, f := range frames(req.Message.MessageID) {
			_ = conn.WriteJSON(f)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAskAssemblesStreamedAnswer(t *testing.T) {
	sources := []protocol.Source{{Metadata: protocol.SourceMetadata{URL: "https://a"}}}
	srv := scriptedServer(t, func(id string) []protocol.Frame {
		return []protocol.Frame{
			protocol.SourcesFrame(id, sources),
			protocol.Chunk("other", "ignored"),
			protocol.Chunk(id, "Paris"),
			protocol.Chunk(id, " [1]"),
			protocol.End(id, "Paris [1]"),
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var live bytes.Buffer
	msg, err := ask(ctx, wsURL(srv.URL), protocol.Params{}, "", "webSearch", "capital?", &live)
	require.NoError(t, err)
	assert.Equal(t, "Paris [1]", live.String())
	assert.Equal(t, assembler.StatusComplete, msg.Status)
	assert.Equal(t, "Paris [1]", msg.Text)
	assert.Equal(t, sources, msg.Sources)
}

func TestAskReturnsConnectionLevelError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(protocol.Error("", protocol.CodeInvalidModelSelected, "bad model"))
	}))
	defer srv.Close()

	_, err := ask(context.Background(), wsURL(srv.URL), protocol.Params{}, "", "", "q", &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), protocol.CodeInvalidModelSelected))
}

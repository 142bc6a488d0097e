package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"ai-search-be/pkg/assembler"
	"ai-search-be/pkg/protocol"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and stream the answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		params := protocol.Params{}
		params.ChatModelProvider, _ = flags.GetString("chat-provider")
		params.ChatModel, _ = flags.GetString("chat-model")
		params.EmbeddingModelProvider, _ = flags.GetString("embedding-provider")
		params.EmbeddingModel, _ = flags.GetString("embedding-model")
		params.OpenAIAPIKey, _ = flags.GetString("openai-key")
		params.OpenAIBaseURL, _ = flags.GetString("openai-url")
		focus, _ := flags.GetString("focus")
		token, _ := flags.GetString("token")
		timeout, _ := flags.GetDuration("timeout")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		msg, err := ask(ctx, wsURL(serverURL), params, token, focus, args[0], cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), "\n\n")
		printAnswer(cmd.OutOrStdout(), msg)
		if msg.Status == assembler.StatusErrored {
			return fmt.Errorf("generation failed")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("chat-provider", "", "chat provider (default: first available)")
	askCmd.Flags().String("chat-model", "", "chat model (default: provider's first)")
	askCmd.Flags().String("embedding-provider", "", "embedding provider")
	askCmd.Flags().String("embedding-model", "", "embedding model")
	askCmd.Flags().String("openai-key", "", "API key for custom_openai")
	askCmd.Flags().String("openai-url", "", "base URL for custom_openai")
	askCmd.Flags().String("focus", "webSearch", "focus mode")
	askCmd.Flags().String("token", "", "bearer token when the server requires one")
	askCmd.Flags().Duration("timeout", 2*time.Minute, "give up after this long")
}

func connectURL(endpoint string, params protocol.Params, token string) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(protocol.ParamChatModelProvider, params.ChatModelProvider)
	set(protocol.ParamChatModel, params.ChatModel)
	set(protocol.ParamEmbeddingModelProvider, params.EmbeddingModelProvider)
	set(protocol.ParamEmbeddingModel, params.EmbeddingModel)
	set(protocol.ParamOpenAIAPIKey, params.OpenAIAPIKey)
	set(protocol.ParamOpenAIBaseURL, params.OpenAIBaseURL)
	set("token", token)
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

// ask runs one request over a fresh session, echoing chunks to live as they
// arrive, and returns the assembled message.
func ask(ctx context.Context, endpoint string, params protocol.Params, token, focus, question string, live io.Writer) (assembler.Message, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, connectURL(endpoint, params, token), nil)
	if err != nil {
		return assembler.Message{}, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	asm := assembler.New()
	messageID := uuid.NewString()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return assembler.Message{}, ctx.Err()
			}
			return assembler.Message{}, fmt.Errorf("read: %w", err)
		}
		f, err := protocol.Decode(data)
		if err != nil {
			if verbose {
				warnColor.Fprintf(live, "skipping frame: %v\n", err)
			}
			continue
		}

		switch {
		case f.Type == protocol.KindReady:
			req := protocol.Request{
				Type:      "message",
				Message:   protocol.RequestMessage{MessageID: messageID, ChatID: uuid.NewString(), Content: question},
				History:   [][2]string{},
				FocusMode: focus,
			}
			if err := conn.WriteJSON(req); err != nil {
				return assembler.Message{}, fmt.Errorf("send request: %w", err)
			}

		case f.Type == protocol.KindError && f.MessageID == "":
			info, _ := f.ErrorInfo()
			return assembler.Message{}, info

		default:
			if f.Type == protocol.KindChunk && f.MessageID == messageID {
				text, _ := f.Text()
				fmt.Fprint(live, text)
			}
			msg, ok := asm.Apply(f)
			if ok && msg.StreamID == messageID && msg.Terminal() {
				return msg, nil
			}
		}
	}
}

package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "searchctl",
	Short: "CLI for the conversational search backend",
	Long: `searchctl - inspect and exercise a running search backend.

Examples:
  # See what can be selected
  searchctl models

  # Ask a question with a specific model
  searchctl ask "what is the capital of France?" --chat-provider ollama --chat-model llama3

  # Use your own OpenAI-compatible endpoint
  searchctl ask "hello" --chat-provider custom_openai --chat-model my-model \
      --openai-url http://localhost:8080/v1 --openai-key sk-...

  # Watch session events
  searchctl events --nats nats://localhost:4222`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:3001", "backend base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(eventsCmd)
}

// wsURL turns the http(s) base URL into the websocket endpoint.
func wsURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/ws"
}

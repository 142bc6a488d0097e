package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"ai-search-be/pkg/events"
	pktNats "ai-search-be/pkg/nats"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail session lifecycle events",
	Long: `Tail session lifecycle events published to NATS JetStream.

Only events published after the command starts are shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		eventType, _ := cmd.Flags().GetString("type")

		sub, err := pktNats.NewSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		subject := pktNats.SubjectPrefix + ">"
		if eventType != "" {
			subject = pktNats.Subject(eventType)
		}

		out := cmd.OutOrStdout()
		cancel, err := sub.Subscribe(ctx, subject, "", func(_ context.Context, e events.Event) error {
			printEvent(out, e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer cancel()

		headerColor.Fprintf(out, "Listening on %s (Ctrl-C to stop)\n", subject)
		<-ctx.Done()
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("nats", "nats://localhost:4222", "NATS server URL")
	eventsCmd.Flags().String("type", "", "only show this event type, e.g. STREAM_FAILED")
}

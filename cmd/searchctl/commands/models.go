package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-search-be/pkg/provider"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

type modelsResponse struct {
	Chat      []provider.ProviderSummary `json:"chatModelProviders"`
	Embedding []provider.ProviderSummary `json:"embeddingModelProviders"`
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable providers and models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		url := strings.TrimRight(serverURL, "/") + "/api/models"
		if refresh {
			url += "?refresh=true"
		}

		agent := fiber.Get(url).Timeout(30 * time.Second)
		code, body, errs := agent.Bytes()
		if len(errs) > 0 {
			return fmt.Errorf("get %s: %w", url, errors.Join(errs...))
		}
		if code != fiber.StatusOK {
			return fmt.Errorf("get %s: status %d: %s", url, code, body)
		}

		if asJSON {
			_, err := cmd.OutOrStdout().Write(append(body, '\n'))
			return err
		}

		var resp modelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode models: %w", err)
		}
		out := cmd.OutOrStdout()
		printCatalog(out, "Chat models", resp.Chat)
		fmt.Fprintln(out)
		printCatalog(out, "Embedding models", resp.Embedding)
		return nil
	},
}

func init() {
	modelsCmd.Flags().Bool("refresh", false, "bypass the server's catalog cache")
	modelsCmd.Flags().Bool("json", false, "print the raw response")
}

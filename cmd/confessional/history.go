package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded chats and reports",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		if kind != "" {
			q.Set("kind", kind)
		}
		resp, err := client.get(cmd.Context(), "/v1/history?"+q.Encode())
		if err != nil {
			return err
		}

		var items []storage.Interaction
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No interactions found.")
			return nil
		}
		for _, it := range items {
			fmt.Fprintln(out, formatInteraction(it))
		}
		return nil
	},
}

// formatInteraction renders one list line: short id, time, kind, status
// and the start of the prompt.
func formatInteraction(it storage.Interaction) string {
	id := it.ID
	if len(id) > 8 {
		id = id[:8]
	}
	prompt := strings.Join(strings.Fields(it.Prompt), " ")
	if r := []rune(prompt); len(r) > 60 {
		prompt = string(r[:60]) + "..."
	}
	status := it.Status
	if status == storage.StatusFailed {
		status = colorize(colorRed, status)
	}
	return fmt.Sprintf("%s  %s  %-6s  %s  %s",
		colorize(colorCyan, id),
		it.CreatedAt.Local().Format("2006-01-02 15:04"),
		it.Kind,
		status,
		prompt,
	)
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/history/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var it storage.Interaction
		if err := decodeJSON(resp, &it); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), it)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/history/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted %s", args[0])
		return nil
	},
}

// historyPruneCmd works on the database directly so it runs without a
// server.
var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete interactions older than a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		n, err := store.PruneBefore(time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		printSuccess("Pruned %d interactions", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	historyListCmd.Flags().String("kind", "", "only list chat or report interactions")
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "age of the oldest interaction to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

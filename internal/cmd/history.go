package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deshgyan/deshgyan/internal/history"
	"github.com/deshgyan/deshgyan/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or edit recent queries",
	RunE:  runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all recent queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecent(cmd, func(recent *history.Recent) error {
			if err := recent.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Recent queries cleared")
			return err
		})
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <query>",
	Short: "Remove one recent query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("query is required")
		}
		return withRecent(cmd, func(recent *history.Recent) error {
			if err := recent.Remove(cmd.Context(), query); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", query)
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().String("output-format", string(output.FormatText), "Output format: text, json, markdown")
	}
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyRemoveCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	return withRecent(cmd, func(recent *history.Recent) error {
		w := cmd.OutOrStdout()
		queries := recent.List()
		switch format {
		case output.FormatJSON:
			return output.WriteJSON(w, map[string]any{
				"queries":  queries,
				"capacity": recent.Capacity(),
			})
		case output.FormatMarkdown:
			_, err := fmt.Fprint(w, output.HistoryMarkdown(queries))
			return err
		default:
			_, err := fmt.Fprintln(w, output.HistoryTable(queries))
			return err
		}
	})
}

func withRecent(cmd *cobra.Command, fn func(*history.Recent) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openStoreWithConfig(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	return fn(history.Load(commandContext(cmd), db, cfg.History.Capacity))
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deshgyan/deshgyan/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the answer cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show answer cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		stats, err := db.AnswerCacheStats(cmd.Context())
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			return output.WriteJSON(cmd.OutOrStdout(), stats)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), output.CacheStatsTable(stats))
		return err
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cached answers (or all with --all --yes)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}
		if all && !yes {
			return errors.New("--all requires --yes")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.PurgeAnswers(cmd.Context(), all)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached answer(s)\n", deleted)
		return err
	},
}

func init() {
	cacheStatsCmd.Flags().String("output-format", string(output.FormatText), "Output format: text|json")
	cachePurgeCmd.Flags().Bool("all", false, "Delete every cached answer, not just expired ones")
	cachePurgeCmd.Flags().Bool("yes", false, "Confirm --all")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

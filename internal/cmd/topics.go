package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deshgyan/deshgyan/internal/catalog"
	"github.com/deshgyan/deshgyan/internal/output"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [grid]",
	Short: "List the curated topic grids",
	Long: `List the topic grids shown on the home page, or the items of one grid.
Ask an item with: deshgyan ask --topic <grid>/<item>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().String("output-format", string(output.FormatText), "Output format: text, json, markdown")
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(args) == 0 {
		switch format {
		case output.FormatJSON:
			return output.WriteJSON(w, cat)
		case output.FormatMarkdown:
			_, err = fmt.Fprint(w, output.TopicsMarkdown(cat))
		default:
			_, err = fmt.Fprintln(w, output.TopicsTable(cat))
		}
		return err
	}

	grid, ok := cat.Grid(args[0])
	if !ok {
		return fmt.Errorf("unknown grid %q", args[0])
	}
	switch format {
	case output.FormatJSON:
		return output.WriteJSON(w, grid)
	case output.FormatMarkdown:
		_, err = fmt.Fprint(w, output.GridMarkdown(grid))
	default:
		_, err = fmt.Fprintln(w, output.GridTable(grid))
	}
	return err
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the prompts available for answering queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		registry, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}

		prompts := registry.List()
		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}

		active := searchPromptSlug(cfg, "")
		writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(writer, "SLUG\tVERSION\tACTIVE\tDESCRIPTION") // nolint:errcheck // tabwriter buffers; errors surface at Flush
		for _, p := range prompts {
			if p == nil {
				continue
			}
			mark := ""
			if p.Config.Slug == active {
				mark = "*"
			}
			_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", p.Config.Slug, p.Config.Version, mark, p.Config.Description) // nolint:errcheck // tabwriter buffers
		}
		return writer.Flush()
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deshgyan/deshgyan/internal/prefs"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the saved color theme",
	Args:  cobra.NoArgs,
	RunE:  runThemeGet,
}

var themeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the saved color theme",
	Args:  cobra.NoArgs,
	RunE:  runThemeGet,
}

var themeSetCmd = &cobra.Command{
	Use:       "set <light|dark>",
	Short:     "Save the color theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(prefs.ThemeLight), string(prefs.ThemeDark)},
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, err := prefs.ParseTheme(args[0])
		if err != nil {
			return err
		}
		return withThemes(cmd, func(themes *prefs.Themes) error {
			if err := themes.Set(cmd.Context(), theme); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), theme)
			return err
		})
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between light and dark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withThemes(cmd, func(themes *prefs.Themes) error {
			theme, err := themes.Toggle(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), theme)
			return err
		})
	},
}

func init() {
	themeCmd.AddCommand(themeGetCmd)
	themeCmd.AddCommand(themeSetCmd)
	themeCmd.AddCommand(themeToggleCmd)
	rootCmd.AddCommand(themeCmd)
}

func runThemeGet(cmd *cobra.Command, args []string) error {
	return withThemes(cmd, func(themes *prefs.Themes) error {
		theme, err := themes.Get(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), theme)
		return err
	})
}

func withThemes(cmd *cobra.Command, fn func(*prefs.Themes) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openStoreWithConfig(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	fallback, err := prefs.ParseTheme(cfg.UI.DefaultTheme)
	if err != nil {
		fallback = prefs.ThemeLight
	}
	return fn(&prefs.Themes{Store: db, Default: fallback})
}

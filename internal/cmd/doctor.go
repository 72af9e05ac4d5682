package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/deshgyan/deshgyan/internal/catalog"
	"github.com/deshgyan/deshgyan/internal/config"
	errwrap "github.com/deshgyan/deshgyan/internal/errors"
	"github.com/deshgyan/deshgyan/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		bannerName := "doctor"
		if identity != nil && identity.BinaryName != "" {
			bannerName = identity.BinaryName + " doctor"
		}
		observability.CLILogger.Info("=== " + bannerName + " ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 8

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Crucible access
		version := crucible.GetVersion()
		if version.Crucible != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Crucible access... ✅ v%s", totalChecks, version.Crucible), zap.String("crucible_version", version.Crucible))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Crucible access... ❌ Cannot access Crucible", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
			allChecks = false
		}

		// Check 3: Gofulmen access
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 4: Config directory
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Error(fmt.Sprintf("[4/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
			allChecks = false
		} else {
			configDir := filepath.Dir(configPath)
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking config directory... ✅ %s", totalChecks, configDir), zap.String("config_dir", configDir))
		}

		// Check 5: Environment
		observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 6: Database
		cfg, cfgErr := config.Load(ctx)
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  config not loaded", totalChecks), zap.Error(cfgErr))
			allChecks = false
		} else if ok := checkDatabase(ctx, cfg, totalChecks); !ok {
			allChecks = false
		}

		// Check 7: Search provider
		if cfgErr == nil {
			route, routeErr := resolveSearchRoute(cfg, "", "", "")
			switch {
			case routeErr != nil:
				observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking search provider... ⚠️  %v", totalChecks, routeErr))
				observability.CLILogger.Info("       Set GEMINI_API_KEY or configure ailink.providers to answer queries.")
				allChecks = false
			case strings.TrimSpace(route.Resolved.Credential.APIKey) == "":
				observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking search provider... ⚠️  %s has no API key (set GEMINI_API_KEY)", totalChecks, route.Resolved.ProviderID))
				allChecks = false
			default:
				observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking search provider... ✅ %s (%s)", totalChecks, route.Resolved.ProviderID, route.Resolved.Model),
					zap.String("provider", route.Resolved.ProviderID),
					zap.String("model", route.Resolved.Model),
					zap.String("prompt", route.PromptSlug))
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking search provider... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 8: Topic catalog
		if cfgErr == nil {
			cat, catErr := catalog.Load(cfg.Catalog.Path)
			if catErr != nil {
				observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking topic catalog... ⚠️  %v", totalChecks, catErr))
				allChecks = false
			} else {
				items := 0
				for _, grid := range cat.Grids {
					items += len(grid.Items)
				}
				observability.CLILogger.Info(fmt.Sprintf("[8/%d] Checking topic catalog... ✅ %d grids, %d topics", totalChecks, len(cat.Grids), items),
					zap.Int("grids", len(cat.Grids)),
					zap.Int("topics", items))
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking topic catalog... ⚠️  skipped (config not loaded)", totalChecks))
		}

		observability.CLILogger.Info("")
		if allChecks {
			appName := "deshgyan"
			if identity != nil && identity.BinaryName != "" {
				appName = identity.BinaryName
			}
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

// checkDatabase reports where the store lives and whether it answers a ping.
func checkDatabase(ctx context.Context, cfg *config.Config, totalChecks int) bool {
	location := cfg.Store.URL + " (remote)"
	if cfg.Store.URL == "" {
		dbPath := cfg.Store.Path
		if dbPath == "" {
			dbPath = config.DefaultStorePath()
		}
		absPath, _ := filepath.Abs(dbPath)
		location = absPath
		if info, statErr := os.Stat(absPath); statErr == nil {
			location = fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
		}
	}

	db, err := openStoreWithConfig(ctx, cfg)
	if err != nil {
		observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (cannot open)", totalChecks, location), zap.Error(err))
		return false
	}
	defer db.Close() //nolint:errcheck

	if err := db.Ping(ctx); err != nil {
		observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (ping failed)", totalChecks, location), zap.Error(err))
		return false
	}

	stats, err := db.AnswerCacheStats(ctx)
	if err != nil {
		observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (cache unreadable)", totalChecks, location), zap.Error(err))
		return false
	}
	observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking database... ✅ %s, %d cached answers", totalChecks, location, stats.Entries),
		zap.String("store", location),
		zap.Int("cached_answers", stats.Entries))
	return true
}

var (
	doctorInitForce     bool
	doctorInitAPIKey string
	doctorResetConfig   bool
	doctorResetData     bool
	doctorResetAll      bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			key, err := promptForValue("Enter Gemini API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = key
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if apiKey != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		configExists := fileExists(configPath)

		dataDir := config.DefaultDataDir()
		cacheDir := config.DefaultCacheDir()

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(configExists)))
		if dataDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			observability.CLILogger.Info("  Data directory: (not resolved)")
		}
		if cacheDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Cache directory: %s (%s)", cacheDir, existenceStatus(fileExists(cacheDir))))
		} else {
			observability.CLILogger.Info("  Cache directory: (not resolved)")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		} else {
			if cfg.Store.URL != "" {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (remote)", cfg.Store.URL))
			} else {
				dbPath := cfg.Store.Path
				if dbPath == "" {
					dbPath = config.DefaultStorePath()
				}
				absPath, _ := filepath.Abs(dbPath)
				if info, statErr := os.Stat(absPath); statErr == nil {
					observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (%s)", absPath, formatFileSize(info.Size())))
				} else if os.IsNotExist(statErr) {
					observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (not created yet)", absPath))
				} else {
					observability.CLILogger.Warn("Database status error", zap.String("db_path", absPath), zap.Error(statErr))
				}
			}

			observability.CLILogger.Info("")
			observability.CLILogger.Info("Environment:")
			prefix := "DESHGYAN_"
			if identity := GetAppIdentity(); identity != nil && identity.EnvPrefix != "" {
				prefix = identity.EnvPrefix
			}
			for _, name := range []string{prefix + "AILINK_PROVIDERS_DESHGYAN_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
				observability.CLILogger.Info(fmt.Sprintf("  %s: %s", name, envStatus(name)))
			}

			observability.CLILogger.Info("")
			observability.CLILogger.Info("Effective Settings:")
			observability.CLILogger.Info(fmt.Sprintf("  ailink.default_provider: %s", cfg.AILink.DefaultProvider))
			observability.CLILogger.Info(fmt.Sprintf("  search.prompt_slug:      %s", searchPromptSlug(cfg, "")))
			observability.CLILogger.Info(fmt.Sprintf("  search.images_enabled:   %t", cfg.Search.ImagesEnabled))
			observability.CLILogger.Info(fmt.Sprintf("  history.capacity:        %d", cfg.History.Capacity))
			observability.CLILogger.Info(fmt.Sprintf("  ui.default_theme:        %s", cfg.UI.DefaultTheme))
		}

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			absPath, _ := filepath.Abs(dbPath)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Database removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set the Gemini api key or use 'prompt' to enter")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func buildInitConfig(apiKey string) string {
	lines := []string{
		"# deshgyan config - created by 'deshgyan doctor init'",
		"ailink:",
		"  default_provider: deshgyan-gemini",
		"  providers:",
		"    deshgyan-gemini:",
		"      enabled: true",
		"      ai_provider: gemini",
		"      base_url: https://generativelanguage.googleapis.com/v1beta",
		"      models:",
		"        default: gemini-3-flash-preview",
		"      credentials:",
		"        - label: default",
		"          priority: 0",
	}

	if strings.TrimSpace(apiKey) != "" {
		lines = append(lines, fmt.Sprintf("          api_key: %q", apiKey))
	} else {
		lines = append(lines, "          # api_key: \"\"  # Set via GEMINI_API_KEY or uncomment")
	}

	lines = append(lines,
		"search:",
		"  prompt_slug: encyclopedia",
		"ui:",
		"  default_theme: light",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}

package cli

import (
	"github.com/recallmem/recall/internal/config"
	"github.com/recallmem/recall/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local memory for AI coding sessions",
	Long:  "Recall remembers preferences, project knowledge, and corrections across coding sessions. Single Go binary, local SQLite store.",
}

var configPath string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (yaml or json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig loads configuration for CLI commands, honoring --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openDB opens the store for commands that work on it directly.
func openDB(cfg *config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

package main

import (
	"fmt"
	"os"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	pkgconfig "github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║            MarketSync v%s              ║
║   Marketplace contract event projector    ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	envFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketsync",
	Short: "MarketSync - marketplace contract event synchronizer",
	Long: `MarketSync scans the marketplace contract for request and offer events
and projects them into a queryable SQLite store. Progress is tracked by a
persisted block cursor, so a restart resumes where the last window ended.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (.yaml, .json, .toml); empty reads the environment only")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	rootCmd.AddCommand(runCmd, statusCmd, schemaCmd)
}

// loadEnvFile populates unset environment variables from a dotenv file.
// A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// componentLogger builds a logger at the level configured for component.
// Packages tag their own component field on top of it.
func componentLogger(cfg *pkgconfig.Config, component string) *logger.Logger {
	level, development := "info", false
	if cfg.Logging != nil {
		level = cfg.Logging.GetComponentLevel(component)
		development = cfg.Logging.IsDevelopment()
	}

	l, err := logger.NewLogger(level, development)
	if err != nil {
		return logger.GetDefaultLogger()
	}

	return l
}

/*
main.go - zenhabit command line

PURPOSE:
  Entry point for the habit tracker. Every subcommand loads the same
  configuration (koanf: YAML file, ZENHABIT_* environment, defaults) and
  builds the same session stack (see app.go).

COMMANDS:
  serve     Run the HTTP API
  export    Write the stored state as a JSON backup
  import    Replace the stored state with a JSON backup
  report    Print a terminal summary of a month and the year

EXAMPLES:
  zenhabit serve --config zenhabit.yaml
  ZENHABIT_STORAGE_DRIVER=sqlite zenhabit report --month 2
  zenhabit export --out backup.json
  zenhabit import backup.json

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Routes served by "serve"
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/zenhabit/config"
	"github.com/warp/zenhabit/logging"
	"go.uber.org/zap"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zenhabit",
	Short: "One-year habit tracker",
	Long: `zenhabit tracks daily completion of a set of habits over one calendar year,
with analytics, monthly reflections and optional AI coaching.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newReportCmd())
}

// loadConfig reads the configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

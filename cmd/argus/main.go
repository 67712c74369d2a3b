package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/common"
)

var (
	configFile string
	serverPort int
	serverHost string

	// Global state shared by subcommands, resolved in loadConfig
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "argus",
	Short: "Autonomous research agent server",
	Long:  "Argus is an autonomous research agent: an action registry, event bus, watchers and an LLM planning loop behind one server.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration in priority order: defaults, file,
// environment, CLI flags. Called by subcommands that need a running config.
func loadConfig() error {
	// Auto-discover config file if not specified
	if configFile == "" {
		if _, err := os.Stat("argus.toml"); err == nil {
			configFile = "argus.toml"
		}
	}

	cfg, err := common.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(cfg, serverPort, serverHost)

	config = cfg
	logger = common.InitLogger(cfg)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

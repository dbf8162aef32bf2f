// Package main implements the vibecope CLI: score posts locally or serve the
// scoring API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location
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
	Use:   "vibecope",
	Short: "Score social posts for hustle-culture hype",
	Long: `vibecope scores post text from 0 to 100 for hustle-culture and AI hype.

It uses a trained classifier when model files are configured and falls back
to locale-aware heuristics otherwise.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/vibecope/config.yaml)")
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(localesCmd)
	rootCmd.AddCommand(serveCmd)
}

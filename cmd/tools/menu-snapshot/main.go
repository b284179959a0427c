// cmd/tools/menu-snapshot/main.go
//
// menu-snapshot refreshes the bundled fallback menu the site ships with.
//
// Usage:
//
//	menu-snapshot fetch [--category=5 --category=7] [--out=data/menu-api.json]
//	menu-snapshot validate [--path=data/menu-api.json]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restaurant-site/internal/common/config"
	"restaurant-site/internal/common/logger"
)

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:           "menu-snapshot",
	Short:         "Fetch and validate the bundled fallback menu",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Config file (default: configs/config.yaml with env overrides)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(validateCmd)
}

func loadConfig() (*config.Config, error) {
	if rootFlags.configPath != "" {
		return config.LoadFromFile(rootFlags.configPath)
	}
	return config.Load()
}

func newLogger() logger.Logger {
	return logger.NewStructured(rootFlags.logLevel, "console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

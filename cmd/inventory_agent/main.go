// Package main provides the entry point for the purchase-mail inventory agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/inventory-sync/internal/config"
	"github.com/jonathan/inventory-sync/internal/observability"
)

var (
	configPath string
	logLevel   string
	console    bool
)

var rootCmd = &cobra.Command{
	Use:   "inventory_agent",
	Short: "Purchase mail to inventory sync",
	Long: "inventory_agent polls a Gmail mailbox for purchase confirmations, extracts inventory line items " +
		"from the message body and PDF attachments with Gemini, and appends them to a Google Sheet or PostgreSQL table. " +
		"Each message is ingested once.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "Human-readable log output instead of JSON")
}

// setup resolves the configuration and builds the logger shared by all commands
func setup() (*config.Config, zerolog.Logger, error) {
	logger, err := observability.NewLogger(logLevel, console)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

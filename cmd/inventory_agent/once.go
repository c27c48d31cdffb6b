package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/inventory-sync/internal/observability"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single ingestion cycle",
	Long:  `Load the processed message ids, run one ingestion cycle and print its summary. Exits non-zero if the cycle fails.`,
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	loop, be, cleanup, err := buildLoop(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	processed, err := be.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load processed ids: %w", err)
	}

	result, err := loop.RunOnce(ctx, processed)
	observability.NewPrinter(cmd.OutOrStdout()).PrintCycleResult(result)
	return err
}

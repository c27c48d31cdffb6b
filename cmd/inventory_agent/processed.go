package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/inventory-sync/internal/observability"
)

var processedAll bool

var processedCmd = &cobra.Command{
	Use:   "processed",
	Short: "Show the processed message ids",
	Long:  `Read the durable processed id store and print how many messages have been ingested.`,
	RunE:  runProcessed,
}

func init() {
	processedCmd.Flags().BoolVar(&processedAll, "all", false, "List every id, one per line")
	rootCmd.AddCommand(processedCmd)
}

func runProcessed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	ids, err := be.store.Load(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintProcessedIDs(ids.Sorted(), processedAll)
	return nil
}

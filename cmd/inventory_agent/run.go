package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/inventory-sync/internal/metrics"
)

var metricsAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the mailbox forever",
	Long: `Load the processed message ids once, then run an ingestion cycle, sleep for the
configured interval and repeat until interrupted. Errors inside a cycle are logged
and retried on the next cycle.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop, _, cleanup, err := buildLoop(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	loop.SetObserver(metrics.New(reg))

	logger.Info().
		Str("backend", cfg.Backend).
		Str("query", cfg.Query).
		Dur("interval", cfg.Interval()).
		Msg("starting inventory agent")

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, metricsAddr, metrics.NewRouter(reg), logger)
		})
	}
	g.Go(func() error {
		err := loop.Run(gctx)
		// Stop the metrics server once the loop is done
		stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() == context.Canceled {
		logger.Info().Msg("shutting down")
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/inventory-sync/internal/config"
	"github.com/jonathan/inventory-sync/internal/db"
	"github.com/jonathan/inventory-sync/internal/extraction"
	"github.com/jonathan/inventory-sync/internal/ingest"
	"github.com/jonathan/inventory-sync/internal/llm"
	"github.com/jonathan/inventory-sync/internal/mail"
	"github.com/jonathan/inventory-sync/internal/sheets"
)

// backend pairs the record sink with the processed id store of one storage choice
type backend struct {
	sink  ingest.RecordSink
	store ingest.ProcessedStore
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		srv, err := sheets.NewService(ctx, cfg.ServiceAccountFile)
		if err != nil {
			return nil, err
		}
		values, err := sheets.NewValues(srv, cfg.SpreadsheetID)
		if err != nil {
			return nil, err
		}
		return &backend{
			sink:  sheets.NewItemSink(values, cfg.ItemsRange, logger),
			store: sheets.NewProcessedStore(values, cfg.ProcessedRange, logger),
			close: func() {},
		}, nil

	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return &backend{
			sink:  db.NewItemSink(database, logger),
			store: db.NewProcessedStore(database, logger),
			close: database.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported backend: %q", cfg.Backend)
	}
}

func llmConfig(cfg *config.Config) *llm.Config {
	c := llm.DefaultConfig()
	if cfg.Model != "" {
		c = c.WithModel(llm.TierStandard, cfg.Model)
	}
	return c
}

func loopOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		Query:       cfg.Query,
		MaxResults:  cfg.MaxResults,
		Interval:    cfg.Interval(),
		Concurrency: cfg.ExtractConcurrency,
		MaxAttempts: cfg.MaxExtractAttempts,
	}
}

// buildLoop wires every collaborator of the ingestion loop. The returned
// cleanup releases clients and connections.
func buildLoop(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*ingest.Loop, *backend, func(), error) {
	gmailSrv, err := mail.NewGmailService(ctx, cfg.GmailCredentials, cfg.GmailToken)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.APIKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}

	loop := ingest.New(
		mail.NewSource(gmailSrv, logger),
		extraction.NewExtractor(client, llm.TierStandard),
		be.sink,
		be.store,
		loopOptions(cfg),
		logger,
	)
	cleanup := func() {
		be.close()
		_ = client.Close()
	}
	return loop, be, cleanup, nil
}

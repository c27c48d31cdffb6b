package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/jonathan/inventory-sync/internal/types"
)

// ProcessedStore keeps processed message ids in the processed_messages table
type ProcessedStore struct {
	db     *DB
	logger zerolog.Logger
}

// NewProcessedStore creates a store backed by db
func NewProcessedStore(db *DB, logger zerolog.Logger) *ProcessedStore {
	return &ProcessedStore{db: db, logger: logger}
}

const selectProcessedSQL = `SELECT message_id FROM processed_messages`

// Load returns every recorded message id
func (s *ProcessedStore) Load(ctx context.Context) (types.IDSet, error) {
	ids, err := queryIDs(ctx, s.db.pool, selectProcessedSQL)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("ids", len(ids)).Msg("loaded processed ids from database")
	return ids, nil
}

// Save inserts the ids of the set the table does not hold yet, in one
// transaction. Existing rows are never updated or deleted.
func (s *ProcessedStore) Save(ctx context.Context, ids types.IDSet) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	durable, err := queryIDs(ctx, tx, selectProcessedSQL)
	if err != nil {
		return err
	}
	fresh := ids.Difference(durable)
	if len(fresh) == 0 {
		s.logger.Debug().Msg("no new processed ids to save")
		return nil
	}

	sorted := fresh.Sorted()
	b := &pgx.Batch{}
	for _, id := range sorted {
		b.Queue(`INSERT INTO processed_messages (message_id) VALUES ($1) ON CONFLICT (message_id) DO NOTHING`, id)
	}
	br := tx.SendBatch(ctx, b)
	for range sorted {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert processed id: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to insert processed ids: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit processed ids: %w", err)
	}
	s.logger.Info().Int("appended", len(sorted)).Msg("saved new processed ids to database")
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryIDs(ctx context.Context, q querier, sql string) (types.IDSet, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed ids: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read processed ids: %w", err)
	}
	return types.NewIDSet(list...), nil
}

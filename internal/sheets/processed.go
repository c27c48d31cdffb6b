package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/inventory-sync/internal/types"
)

// ProcessedStore keeps processed message ids in column A of a dedicated tab.
// The tab may be edited by hand, so Save re-reads it before appending.
type ProcessedStore struct {
	api    valuesAPI
	rng    string
	logger zerolog.Logger
}

// NewProcessedStore creates a store over rng, DefaultProcessedRange when empty
func NewProcessedStore(values *Values, rng string, logger zerolog.Logger) *ProcessedStore {
	return newProcessedStore(values, rng, logger)
}

func newProcessedStore(api valuesAPI, rng string, logger zerolog.Logger) *ProcessedStore {
	if rng == "" {
		rng = DefaultProcessedRange
	}
	return &ProcessedStore{api: api, rng: rng, logger: logger}
}

// Load reads every recorded id, skipping blank rows
func (s *ProcessedStore) Load(ctx context.Context) (types.IDSet, error) {
	ids, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("ids", len(ids)).Msg("loaded processed ids from sheet")
	return ids, nil
}

// Save appends, sorted and in one request, the ids of the full set that the
// sheet does not hold yet. Existing rows are never rewritten.
func (s *ProcessedStore) Save(ctx context.Context, ids types.IDSet) error {
	if len(ids) == 0 {
		s.logger.Debug().Msg("no processed ids to save")
		return nil
	}

	durable, err := s.read(ctx)
	if err != nil {
		return err
	}

	fresh := ids.Difference(durable)
	if len(fresh) == 0 {
		s.logger.Debug().Msg("no new processed ids to save, all already in sheet")
		return nil
	}

	sorted := fresh.Sorted()
	rows := make([][]any, 0, len(sorted))
	for _, id := range sorted {
		rows = append(rows, []any{id})
	}
	if err := s.api.Append(ctx, s.rng, rows, InputRaw); err != nil {
		return err
	}

	s.logger.Info().Int("appended", len(rows)).Msg("appended new processed ids to sheet")
	return nil
}

func (s *ProcessedStore) read(ctx context.Context) (types.IDSet, error) {
	rows, err := s.api.Get(ctx, s.rng)
	if err != nil {
		return nil, err
	}
	ids := make(types.IDSet, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id != "" {
			ids.Add(id)
		}
	}
	return ids, nil
}

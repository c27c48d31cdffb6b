package sheets

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jonathan/inventory-sync/internal/types"
)

// ItemSink appends inventory items as rows, one column per item field
type ItemSink struct {
	api    valuesAPI
	rng    string
	logger zerolog.Logger
}

// NewItemSink creates a sink writing to rng, DefaultItemsRange when empty
func NewItemSink(values *Values, rng string, logger zerolog.Logger) *ItemSink {
	return newItemSink(values, rng, logger)
}

func newItemSink(api valuesAPI, rng string, logger zerolog.Logger) *ItemSink {
	if rng == "" {
		rng = DefaultItemsRange
	}
	return &ItemSink{api: api, rng: rng, logger: logger}
}

// Append writes all items in a single append request
func (s *ItemSink) Append(ctx context.Context, items []types.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Row())
	}
	if err := s.api.Append(ctx, s.rng, rows, InputUserEntered); err != nil {
		return err
	}
	s.logger.Info().Int("rows", len(rows)).Str("range", s.rng).Msg("appended inventory rows")
	return nil
}

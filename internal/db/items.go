package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/jonathan/inventory-sync/internal/types"
)

// itemColumns is the copy column list of inventory_items
var itemColumns = []string{
	"id",
	"batch_id",
	"product_name",
	"category",
	"subcategory",
	"vendor",
	"manufacturer_part_number",
	"quantity",
	"unit_price",
	"total_price",
	"funding_source",
	"requester",
	"pi_name",
	"order_date",
	"expiration_date",
	"billing_cycle",
	"location_or_owner",
}

// ItemSink writes inventory items to the inventory_items table
type ItemSink struct {
	db     *DB
	logger zerolog.Logger
}

// NewItemSink creates a sink backed by db
func NewItemSink(db *DB, logger zerolog.Logger) *ItemSink {
	return &ItemSink{db: db, logger: logger}
}

// Append copies all items in one transaction. Rows of one call share a batch id.
func (s *ItemSink) Append(ctx context.Context, items []types.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}

	batchID := uuid.New()
	rows := itemRows(batchID, items)

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CopyFrom(ctx, pgx.Identifier{TableInventoryItems}, itemColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy inventory items: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit inventory items: %w", err)
	}

	s.logger.Info().Int64("rows", n).Str("batch_id", batchID.String()).Msg("inserted inventory rows")
	return nil
}

func itemRows(batchID uuid.UUID, items []types.InventoryItem) [][]any {
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{
			uuid.New().String(),
			batchID.String(),
			item.ProductName,
			item.Category,
			item.Subcategory,
			item.Vendor,
			item.ManufacturerPartNumber,
			int32(item.Quantity),
			item.UnitPrice,
			item.TotalPrice,
			item.FundingSource,
			item.Requester,
			item.PIName,
			item.OrderDate,
			item.ExpirationDate,
			item.BillingCycle,
			item.LocationOrOwner,
		})
	}
	return rows
}

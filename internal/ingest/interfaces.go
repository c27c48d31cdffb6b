// Package ingest runs the incremental mailbox-to-inventory synchronization loop.
package ingest

import (
	"context"

	"github.com/jonathan/inventory-sync/internal/types"
)

// MailSource yields candidate messages matching a query
type MailSource interface {
	// Fetch returns up to maxResults messages for query, in no particular order
	Fetch(ctx context.Context, query string, maxResults int) ([]types.Message, error)
}

// Extractor turns a message body and its attachments into inventory items
type Extractor interface {
	// Extract returns zero or more items, or an error for unusable input or output
	Extract(ctx context.Context, body string, attachments []types.Attachment) ([]types.InventoryItem, error)
}

// RecordSink appends inventory rows to a persistent table
type RecordSink interface {
	// Append writes the whole batch in one call
	Append(ctx context.Context, items []types.InventoryItem) error
}

// ProcessedStore durably records the ids of fully ingested messages
type ProcessedStore interface {
	// Load reads every id currently recorded
	Load(ctx context.Context) (types.IDSet, error)
	// Save appends the ids of the given full set that are not yet recorded
	Save(ctx context.Context, ids types.IDSet) error
}

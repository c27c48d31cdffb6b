package db

// Table names
const (
	TableProcessedMessages = "processed_messages"
	TableInventoryItems    = "inventory_items"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS processed_messages (
		message_id   TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id                       UUID PRIMARY KEY,
		batch_id                 UUID NOT NULL,
		product_name             TEXT NOT NULL,
		category                 TEXT NOT NULL,
		subcategory              TEXT,
		vendor                   TEXT,
		manufacturer_part_number TEXT,
		quantity                 INTEGER NOT NULL DEFAULT 1,
		unit_price               NUMERIC,
		total_price              NUMERIC,
		funding_source           TEXT,
		requester                TEXT,
		pi_name                  TEXT,
		order_date               TEXT,
		expiration_date          TEXT,
		billing_cycle            TEXT,
		location_or_owner        TEXT,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_batch ON inventory_items(batch_id)`,
}

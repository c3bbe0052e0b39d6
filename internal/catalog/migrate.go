package catalog

import (
	"context"
	"fmt"

	"github.com/shopmate/assistant-engine/internal/storage"
)

// schema is portable between SQLite and Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shops (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                  TEXT PRIMARY KEY,
		shop_id             TEXT NOT NULL REFERENCES shops (id),
		name                TEXT NOT NULL,
		price               DOUBLE PRECISION NOT NULL DEFAULT 0,
		category            TEXT NOT NULL DEFAULT '',
		stock_quantity      INTEGER NOT NULL DEFAULT 0,
		is_on_order         BOOLEAN,
		discount_percentage DOUBLE PRECISION,
		rating              DOUBLE PRECISION,
		view_count          INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	`CREATE INDEX IF NOT EXISTS idx_products_view_count ON products (view_count)`,
	`CREATE INDEX IF NOT EXISTS idx_products_created_at ON products (created_at)`,
}

// Migrate creates the catalog tables if they do not exist.
func Migrate(ctx context.Context, db storage.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

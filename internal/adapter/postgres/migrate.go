package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         BIGSERIAL PRIMARY KEY,
		product_id INT NOT NULL UNIQUE,
		name       VARCHAR(40) NOT NULL,
		filename   VARCHAR(100) NOT NULL,
		price      INT NOT NULL,
		no_stock   INT
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           BIGSERIAL PRIMARY KEY,
		order_id     INT NOT NULL UNIQUE,
		ordered_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		canceled_at  TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ordered_items (
		id          BIGSERIAL PRIMARY KEY,
		order_id    INT NOT NULL,
		item_no     INT NOT NULL,
		product_id  INT NOT NULL,
		supplied_at TIMESTAMPTZ,
		UNIQUE (order_id, item_no)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_ordered_items_order_id ON ordered_items (order_id)`,
	`CREATE INDEX IF NOT EXISTS ix_ordered_items_product_id ON ordered_items (product_id)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"perfumery_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/uptrace/bun"
)

var models = []any{
	(*tables.User)(nil),
	(*tables.Product)(nil),
	(*tables.Order)(nil),
	(*tables.OrderItem)(nil),
}

type index struct {
	model   any
	name    string
	columns []string
}

var indexes = []index{
	{(*tables.Product)(nil), "products_category_idx", []string{"category"}},
	{(*tables.Product)(nil), "products_created_at_idx", []string{"created_at"}},
	{(*tables.Order)(nil), "orders_user_id_idx", []string{"user_id"}},
	{(*tables.Order)(nil), "orders_status_idx", []string{"status"}},
	{(*tables.OrderItem)(nil), "order_items_order_id_idx", []string{"order_id"}},
}

// Migrate creates missing tables and indexes. Existing tables are left alone.
func Migrate(ctx context.Context, db bun.IDB, logger *gecho.Logger) error {
	if _, err := db.NewRaw(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Exec(ctx); err != nil {
		logger.Warn("Could not ensure pgcrypto extension", gecho.Field("error", err))
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	// quantity can never go negative, even under concurrent checkouts
	if _, err := db.NewRaw(`DO $$ BEGIN
		ALTER TABLE products ADD CONSTRAINT products_quantity_non_negative CHECK (quantity >= 0);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add quantity constraint: %w", err)
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	logger.Info("Database schema is up to date", gecho.Field("tables", len(models)))
	return nil
}

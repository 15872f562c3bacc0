package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/marketplace-core/internal/domain/discount"
)

var entityTables = map[discount.EntityKind]string{
	discount.KindCategory: "categories",
	discount.KindProduct:  "products",
	discount.KindShipment: "shipments",
}

var _ discount.EntityChecker = (*EntityChecker)(nil)

// EntityChecker verifies existence of the entities discounts attach to.
type EntityChecker struct {
	pool *pgxpool.Pool
}

// NewEntityChecker returns an EntityChecker that uses the given pool.
func NewEntityChecker(pool *pgxpool.Pool) *EntityChecker {
	return &EntityChecker{pool: pool}
}

// Exists reports whether the entity of the given kind exists.
func (c *EntityChecker) Exists(ctx context.Context, kind discount.EntityKind, id uuid.UUID) (bool, error) {
	table, ok := entityTables[kind]
	if !ok {
		return false, discount.ErrUnknownKind
	}

	var exists bool
	sql := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := c.pool.QueryRow(ctx, sql, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking %s %q: %w", kind, id, err)
	}
	return exists, nil
}

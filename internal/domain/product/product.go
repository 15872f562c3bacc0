// Package product exposes the read-only product catalog consumed by the cart
// and order services. Catalog CRUD lives outside this service.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item with its current price and inventory level.
// The price is snapshotted into cart lines at add time; later price changes
// never alter existing lines.
type Product struct {
	ID            uuid.UUID
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	CategoryID    uuid.UUID
}

// Available reports whether the product has any inventory left.
func (p Product) Available() bool {
	return p.StockQuantity > 0
}

// Repository defines read operations over the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

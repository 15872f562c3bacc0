// Package cart owns the cart/cart-item aggregate: line item mutation, the
// derived persisted total, and coupon attachment.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the referenced cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when the referenced cart item does not exist.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrEmpty is returned when an operation requires a non-empty cart.
	ErrEmpty = errors.New("cart is empty")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Cart is one user's shopping cart. Total is a derived value persisted for
// cheap reads: after every line mutation it equals the sum of line totals.
// CouponAmount is display-only and is never deducted from Total.
type Cart struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Total        decimal.Decimal
	CouponID     *uuid.UUID
	CouponAmount decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is a single cart line. UnitPrice is a snapshot of the product price at
// add time; later catalog price changes never alter existing lines.
type Item struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns the line total: unit price times quantity. It is always
// computed, never stored.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// Repository provides persistence for the cart aggregate.
//
// Every mutating operation (InsertItem, SetItemQuantity, DeleteItem, Clear)
// must run in a single transaction that locks the cart row and recomputes the
// persisted total from the surviving lines, so that total and lines are never
// observably inconsistent to a concurrent reader.
//
// InsertItem merges quantities when a line for the product already exists and
// re-validates the merged quantity against current stock inside the same
// transaction. On success the passed Item reflects the stored line.
type Repository interface {
	Create(ctx context.Context, userID uuid.UUID) (*Cart, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	GetTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	GetItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*Item, error)
	InsertItem(ctx context.Context, item *Item) error
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*Item, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
	ApplyCoupon(ctx context.Context, cartID, couponID uuid.UUID, amount decimal.Decimal) error
}

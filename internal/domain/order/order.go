// Package order assembles priced carts into immutable orders.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrUnknownStatus is returned for a status outside the lifecycle set.
	ErrUnknownStatus = errors.New("unknown order status")
)

// ParseStatus validates a status received from the outside.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Order is an immutable snapshot of a priced cart. Subtotal, CouponAmount,
// and Total are frozen at checkout time; later price or coupon changes never
// alter an order.
type Order struct {
	ID           uuid.UUID
	OrderNumber  uuid.UUID
	UserID       uuid.UUID
	Status       Status
	Subtotal     decimal.Decimal
	CouponID     *uuid.UUID
	CouponAmount decimal.Decimal
	Total        decimal.Decimal
	Items        []Item
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is one frozen order line.
type Item struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns the line total.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// Repository provides persistence for orders.
//
// CreateFromCart must run as one transaction: insert the order and its items,
// decrement product stock with an availability guard (surfacing stock errors
// when inventory ran out since the cart was priced), and clear the source
// cart including its coupon fields.
type Repository interface {
	CreateFromCart(ctx context.Context, o *Order, cartID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderNumber(ctx context.Context, number uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
}

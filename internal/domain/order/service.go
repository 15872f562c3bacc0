package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/cart"
	"github.com/xenking/marketplace-core/internal/domain/coupon"
)

// CouponLedger is the slice of the coupon ledger checkout depends on.
type CouponLedger interface {
	ValidateCouponID(ctx context.Context, id uuid.UUID, subtotal decimal.Decimal) (*coupon.Coupon, error)
	Redeem(ctx context.Context, couponID, userID uuid.UUID) error
}

// Service converts priced carts into immutable orders.
type Service struct {
	carts  cart.Repository
	ledger CouponLedger
	orders Repository
}

// NewService creates an order Service.
func NewService(carts cart.Repository, ledger CouponLedger, orders Repository) *Service {
	return &Service{carts: carts, ledger: ledger, orders: orders}
}

// Checkout snapshots the user's cart into an order. The subtotal is recomputed
// from the lines, the attached coupon (if any) is re-validated and redeemed,
// and persistence re-checks stock and clears the cart in one transaction.
func (s *Service) Checkout(ctx context.Context, cartID, userID uuid.UUID) (*Order, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, cart.ErrNotFound
	}

	lines, err := s.carts.ListItems(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	if len(lines) == 0 {
		return nil, cart.ErrEmpty
	}

	subtotal := decimal.Zero
	orderID := uuid.New()
	items := make([]Item, len(lines))
	for i, line := range lines {
		items[i] = Item{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		subtotal = subtotal.Add(line.Total())
	}
	subtotal = subtotal.Round(2)

	couponAmount := decimal.Zero
	var couponID *uuid.UUID
	if c.CouponID != nil {
		cpn, err := s.ledger.ValidateCouponID(ctx, *c.CouponID, subtotal)
		if err != nil {
			return nil, err
		}
		couponAmount = cpn.DiscountValue(subtotal)
		couponID = &cpn.ID
	}

	total := subtotal.Sub(couponAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	// The redemption slot is consumed before the order is written: the usage
	// cap is the invariant that must hold even when the checkout later fails.
	if couponID != nil {
		if err := s.ledger.Redeem(ctx, *couponID, userID); err != nil {
			return nil, err
		}
	}

	o := &Order{
		ID:           orderID,
		OrderNumber:  uuid.New(),
		UserID:       userID,
		Status:       StatusPending,
		Subtotal:     subtotal,
		CouponID:     couponID,
		CouponAmount: couponAmount,
		Total:        total.Round(2),
		Items:        items,
	}
	if err := s.orders.CreateFromCart(ctx, o, cartID); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetByID returns one order with its items.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetByOrderNumber returns one order by its public number.
func (s *Service) GetByOrderNumber(ctx context.Context, number uuid.UUID) (*Order, error) {
	return s.orders.GetByOrderNumber(ctx, number)
}

// List returns all orders, most recent first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// ListByUser returns one user's orders, most recent first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// UpdateStatus moves the order to a new lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	return s.orders.UpdateStatus(ctx, id, status)
}

package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderValidator checks a coupon code against an order subtotal and returns
// the coupon when it is redeemable.
type OrderValidator interface {
	ValidateForOrder(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error)
}

// Ledger validates coupon eligibility and records redemptions. It is the only
// path that mutates used_count.
type Ledger struct {
	repo  Repository
	codes *CodeFilter
	now   func() time.Time
}

// NewLedger creates a Ledger. The code filter is optional; when nil every
// lookup goes to the repository.
func NewLedger(repo Repository, codes *CodeFilter) *Ledger {
	return &Ledger{repo: repo, codes: codes, now: time.Now}
}

// ValidateForOrder looks up the coupon by code and verifies it can be applied
// to an order with the given subtotal. It returns ErrNotFound for unknown
// codes, ErrExpired when the coupon is inactive, outside its window, or out
// of redemption slots, and MinimumOrderNotMetError when the subtotal is below
// the coupon's minimum.
func (l *Ledger) ValidateForOrder(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	if l.codes != nil && !l.codes.MayContain(code) {
		return nil, ErrNotFound
	}

	c, err := l.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := l.check(c, subtotal); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidateCouponID re-validates an already attached coupon by its identifier,
// using the same eligibility rules as ValidateForOrder. Checkout uses it to
// confirm the cart's coupon is still redeemable at order time.
func (l *Ledger) ValidateCouponID(ctx context.Context, id uuid.UUID, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := l.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := l.check(c, subtotal); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Ledger) check(c *Coupon, subtotal decimal.Decimal) error {
	if !c.CurrentlyActive(l.now()) {
		return ErrExpired
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return &MinimumOrderNotMetError{Required: c.MinOrderAmount, Actual: subtotal}
	}
	return nil
}

// Redeem consumes one redemption slot for the coupon and writes the usage row.
// The repository performs the compare-and-increment under a row lock, so two
// racing redemptions on the last slot produce exactly one success; the loser
// receives ErrExpired.
func (l *Ledger) Redeem(ctx context.Context, couponID, userID uuid.UUID) error {
	if err := l.repo.Redeem(ctx, couponID, userID); err != nil {
		if errors.Is(err, ErrExpired) || errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "redeem coupon")
	}
	return nil
}

// Package coupon implements promotional coupon eligibility, percentage
// discount computation, and capped redemption with an append-only usage log.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no coupon exists for a code or id.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is inactive, outside its validity
	// window, or has exhausted its usage cap.
	ErrExpired = errors.New("coupon expired")
	// ErrNoStatusChange rejects a status update that matches the current state.
	ErrNoStatusChange = errors.New("coupon already has the requested status")
	// ErrDuplicateCode is returned when creating a coupon with a taken code.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInvalidPercent is returned when a discount percentage is outside 0-100.
	ErrInvalidPercent = errors.New("discount percent must be between 0 and 100")
	// ErrInvalidWindow is returned when a validity window ends before it starts.
	ErrInvalidWindow = errors.New("validity window must end after it starts")
	// ErrInvalidMaxUses is returned when the usage cap is not positive.
	ErrInvalidMaxUses = errors.New("max uses must be at least 1")
)

// MinimumOrderNotMetError indicates the order subtotal is below the coupon's
// minimum order amount.
type MinimumOrderNotMetError struct {
	Required decimal.Decimal
	Actual   decimal.Decimal
}

func (e *MinimumOrderNotMetError) Error() string {
	return fmt.Sprintf("minimum order amount is %s, your total is %s",
		e.Required.StringFixed(2), e.Actual.StringFixed(2))
}

// Coupon is a global promotional code with a capped number of redemptions
// inside a validity window.
type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountPercent int
	MinOrderAmount  decimal.Decimal
	MaxUses         int
	UsedCount       int
	StartAt         time.Time
	EndAt           time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CurrentlyActive reports whether the coupon can be redeemed at the given
// instant: the active flag is set, the cap is not exhausted, and now falls
// inside [StartAt, EndAt].
func (c *Coupon) CurrentlyActive(now time.Time) bool {
	return c.IsActive &&
		c.UsedCount < c.MaxUses &&
		!now.Before(c.StartAt) && !now.After(c.EndAt)
}

// DiscountValue computes the monetary discount for the given subtotal:
// subtotal * percent / 100, rounded half-up to the currency's minor unit.
func (c *Coupon) DiscountValue(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.
		Mul(decimal.NewFromInt(int64(c.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
}

// Usage is one redemption event. Rows are append-only and serve as the audit
// log behind the used_count counter.
type Usage struct {
	ID       uuid.UUID
	CouponID uuid.UUID
	UserID   uuid.UUID
	UsedAt   time.Time
}

// Repository provides persistence for coupons and their usage log.
//
// Redeem must execute as a single transaction that locks the coupon row,
// verifies used_count < max_uses, increments the counter, and inserts the
// usage row. When the cap is already exhausted it returns ErrExpired.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	ListByActive(ctx context.Context, active bool, now time.Time) ([]Coupon, error)
	ListCodes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Redeem(ctx context.Context, couponID, userID uuid.UUID) error
	ListUsages(ctx context.Context) ([]Usage, error)
	ListUsagesByCoupon(ctx context.Context, couponID uuid.UUID) ([]Usage, error)
	ListUsagesByUser(ctx context.Context, userID uuid.UUID) ([]Usage, error)
}

package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateParams holds the administrator input for issuing a coupon.
// When Code is empty a random UUID string is generated.
type CreateParams struct {
	Code            string
	DiscountPercent int
	MinOrderAmount  decimal.Decimal
	MaxUses         int
	StartAt         time.Time
	EndAt           time.Time
	IsActive        bool
}

// UpdateParams holds optional field updates; nil fields are left unchanged.
type UpdateParams struct {
	DiscountPercent *int
	MinOrderAmount  *decimal.Decimal
	MaxUses         *int
	StartAt         *time.Time
	EndAt           *time.Time
}

// Service is the administrative surface over coupons and their usage log.
type Service struct {
	repo  Repository
	codes *CodeFilter
	now   func() time.Time
}

// NewService creates a coupon Service. The code filter is optional and, when
// present, is kept in sync with newly issued codes.
func NewService(repo Repository, codes *CodeFilter) *Service {
	return &Service{repo: repo, codes: codes, now: time.Now}
}

// Create validates and persists a new coupon.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Coupon, error) {
	if params.DiscountPercent < 0 || params.DiscountPercent > 100 {
		return nil, ErrInvalidPercent
	}
	if params.MaxUses < 1 {
		return nil, ErrInvalidMaxUses
	}
	if !params.EndAt.After(params.StartAt) {
		return nil, ErrInvalidWindow
	}

	code := params.Code
	if code == "" {
		code = uuid.New().String()
	}

	now := s.now()
	c := &Coupon{
		ID:              uuid.New(),
		Code:            code,
		DiscountPercent: params.DiscountPercent,
		MinOrderAmount:  params.MinOrderAmount,
		MaxUses:         params.MaxUses,
		StartAt:         params.StartAt,
		EndAt:           params.EndAt,
		IsActive:        params.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, errors.Wrap(err, "create coupon")
	}

	if s.codes != nil {
		s.codes.Add(code)
	}
	return c, nil
}

// Update applies the non-nil fields of params to an existing coupon.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.DiscountPercent != nil {
		if *params.DiscountPercent < 0 || *params.DiscountPercent > 100 {
			return nil, ErrInvalidPercent
		}
		c.DiscountPercent = *params.DiscountPercent
	}
	if params.MinOrderAmount != nil {
		c.MinOrderAmount = *params.MinOrderAmount
	}
	if params.MaxUses != nil {
		if *params.MaxUses < 1 {
			return nil, ErrInvalidMaxUses
		}
		c.MaxUses = *params.MaxUses
	}
	if params.StartAt != nil {
		c.StartAt = *params.StartAt
	}
	if params.EndAt != nil {
		c.EndAt = *params.EndAt
	}
	if !c.EndAt.After(c.StartAt) {
		return nil, ErrInvalidWindow
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes a coupon and, through cascading, its usage rows.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// SetActive flips the coupon's active flag. Setting the flag to its current
// value is rejected with ErrNoStatusChange.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsActive == active {
		return ErrNoStatusChange
	}
	return s.repo.SetActive(ctx, id, active)
}

// List returns all coupons, most recent first. When active is non-nil the
// result is filtered by the currently-active predicate evaluated at call time.
func (s *Service) List(ctx context.Context, active *bool) ([]Coupon, error) {
	if active == nil {
		return s.repo.List(ctx)
	}
	return s.repo.ListByActive(ctx, *active, s.now())
}

// GetByCode returns the coupon with the given code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	return s.repo.GetByCode(ctx, code)
}

// GetByID returns the coupon with the given id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUsages returns redemption events, optionally scoped to one coupon or
// one user. Passing both filters is not supported; couponID wins.
func (s *Service) ListUsages(ctx context.Context, couponID, userID *uuid.UUID) ([]Usage, error) {
	switch {
	case couponID != nil:
		return s.repo.ListUsagesByCoupon(ctx, *couponID)
	case userID != nil:
		return s.repo.ListUsagesByUser(ctx, *userID)
	default:
		return s.repo.ListUsages(ctx)
	}
}

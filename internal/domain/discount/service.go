package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// CreateParams holds the administrator input for creating a discount.
type CreateParams struct {
	Kind            EntityKind
	EntityID        uuid.UUID
	DiscountPercent int
	StartAt         time.Time
	EndAt           time.Time
	IsActive        bool
}

// UpdateParams holds optional field updates; nil fields are left unchanged.
type UpdateParams struct {
	DiscountPercent *int
	StartAt         *time.Time
	EndAt           *time.Time
}

// Service dispatches discount operations over the three variants.
type Service struct {
	repo     Repository
	entities EntityChecker
	now      func() time.Time
}

// NewService creates a discount Service.
func NewService(repo Repository, entities EntityChecker) *Service {
	return &Service{repo: repo, entities: entities, now: time.Now}
}

// List returns all discounts of one kind, most recent first. When active is
// non-nil the result is filtered by the currently-active predicate.
func (s *Service) List(ctx context.Context, kind EntityKind, active *bool) ([]Discount, error) {
	if active == nil {
		return s.repo.ListByKind(ctx, kind)
	}
	return s.repo.ListByKindActive(ctx, kind, *active, s.now())
}

// GetByID returns one discount row.
func (s *Service) GetByID(ctx context.Context, kind EntityKind, id uuid.UUID) (*Discount, error) {
	return s.repo.GetByID(ctx, kind, id)
}

// ListByEntity returns the discounts attached to one entity, most recent
// first, optionally restricted to currently-active rows.
func (s *Service) ListByEntity(ctx context.Context, kind EntityKind, entityID uuid.UUID, activeOnly bool) ([]Discount, error) {
	if activeOnly {
		return s.repo.ListActiveByEntity(ctx, kind, entityID, s.now())
	}
	return s.repo.ListByEntity(ctx, kind, entityID)
}

// EffectiveDiscount resolves the single discount that applies to an entity
// right now. When several rows are simultaneously active the highest
// percentage wins (best for the customer). Returns nil when nothing applies.
func (s *Service) EffectiveDiscount(ctx context.Context, kind EntityKind, entityID uuid.UUID) (*Discount, error) {
	active, err := s.repo.ListActiveByEntity(ctx, kind, entityID, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}
	if len(active) == 0 {
		return nil, nil
	}

	best := &active[0]
	for i := range active[1:] {
		if active[i+1].DiscountPercent > best.DiscountPercent {
			best = &active[i+1]
		}
	}
	return best, nil
}

// Create validates and persists a new discount against an existing entity.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Discount, error) {
	if params.DiscountPercent < 0 || params.DiscountPercent > 100 {
		return nil, ErrInvalidPercent
	}
	if !params.EndAt.After(params.StartAt) {
		return nil, ErrInvalidWindow
	}

	exists, err := s.entities.Exists(ctx, params.Kind, params.EntityID)
	if err != nil {
		return nil, errors.Wrap(err, "check entity")
	}
	if !exists {
		return nil, &EntityNotFoundError{Kind: params.Kind, EntityID: params.EntityID}
	}

	now := s.now()
	d := &Discount{
		ID:              uuid.New(),
		Kind:            params.Kind,
		EntityID:        params.EntityID,
		DiscountPercent: params.DiscountPercent,
		IsActive:        params.IsActive,
		StartAt:         params.StartAt,
		EndAt:           params.EndAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "create discount")
	}
	return d, nil
}

// Update applies the non-nil fields of params to an existing discount.
func (s *Service) Update(ctx context.Context, kind EntityKind, id uuid.UUID, params UpdateParams) (*Discount, error) {
	d, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if params.DiscountPercent != nil {
		if *params.DiscountPercent < 0 || *params.DiscountPercent > 100 {
			return nil, ErrInvalidPercent
		}
		d.DiscountPercent = *params.DiscountPercent
	}
	if params.StartAt != nil {
		d.StartAt = *params.StartAt
	}
	if params.EndAt != nil {
		d.EndAt = *params.EndAt
	}
	if !d.EndAt.After(d.StartAt) {
		return nil, ErrInvalidWindow
	}

	d.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, errors.Wrap(err, "update discount")
	}
	return d, nil
}

// Delete removes a discount row.
func (s *Service) Delete(ctx context.Context, kind EntityKind, id uuid.UUID) error {
	return s.repo.Delete(ctx, kind, id)
}

// SetStatus flips the discount's active flag. Requesting the current status
// is rejected with ErrNoStatusChange; this is a deliberate idempotence guard.
func (s *Service) SetStatus(ctx context.Context, kind EntityKind, id uuid.UUID, active bool) error {
	d, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if d.IsActive == active {
		return ErrNoStatusChange
	}
	return s.repo.SetActive(ctx, kind, id, active)
}

// Package discount implements time-windowed promotional discounts attached to
// categories, products, and shipments through one uniform interface. The
// variant is selected by an explicit EntityKind tag, never by inspecting the
// record's shape.
package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// EntityKind discriminates the three discount variants.
type EntityKind string

const (
	KindCategory EntityKind = "category"
	KindProduct  EntityKind = "product"
	KindShipment EntityKind = "shipment"
)

// ErrUnknownKind is returned for an entity kind outside the three variants.
var ErrUnknownKind = errors.New("unknown discount entity kind")

// ParseEntityKind validates a kind received from the outside.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindCategory, KindProduct, KindShipment:
		return k, nil
	default:
		return "", ErrUnknownKind
	}
}

var (
	// ErrNotFound is returned when the referenced discount does not exist.
	ErrNotFound = errors.New("discount not found")
	// ErrNoStatusChange rejects a status update that matches the current state.
	ErrNoStatusChange = errors.New("discount already has the requested status")
	// ErrInvalidPercent is returned when a discount percentage is outside 0-100.
	ErrInvalidPercent = errors.New("discount percent must be between 0 and 100")
	// ErrInvalidWindow is returned when an activity window ends before it starts.
	ErrInvalidWindow = errors.New("activity window must end after it starts")
)

// EntityNotFoundError indicates the category, product, or shipment a discount
// refers to does not exist.
type EntityNotFoundError struct {
	Kind     EntityKind
	EntityID uuid.UUID
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.EntityID)
}

// Discount is one promotional discount row for a single entity. Several
// discounts may coexist for the same entity; there is no uniqueness rule.
type Discount struct {
	ID              uuid.UUID
	Kind            EntityKind
	EntityID        uuid.UUID
	DiscountPercent int
	IsActive        bool
	StartAt         time.Time
	EndAt           time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CurrentlyActive reports whether the discount applies at the given instant.
// The predicate is identical for all three variants and always compares full
// timestamps.
func (d *Discount) CurrentlyActive(now time.Time) bool {
	return d.IsActive && !now.Before(d.StartAt) && !now.After(d.EndAt)
}

// Repository provides persistence over the three discount tables. All list
// operations return rows most-recent-first.
type Repository interface {
	ListByKind(ctx context.Context, kind EntityKind) ([]Discount, error)
	ListByKindActive(ctx context.Context, kind EntityKind, active bool, now time.Time) ([]Discount, error)
	GetByID(ctx context.Context, kind EntityKind, id uuid.UUID) (*Discount, error)
	ListByEntity(ctx context.Context, kind EntityKind, entityID uuid.UUID) ([]Discount, error)
	ListActiveByEntity(ctx context.Context, kind EntityKind, entityID uuid.UUID, now time.Time) ([]Discount, error)
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, kind EntityKind, id uuid.UUID) error
	SetActive(ctx context.Context, kind EntityKind, id uuid.UUID, active bool) error
}

// EntityChecker verifies that the entity a discount points at exists.
type EntityChecker interface {
	Exists(ctx context.Context, kind EntityKind, id uuid.UUID) (bool, error)
}

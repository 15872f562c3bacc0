package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/marketplace-core/internal/domain/discount"
)

// discountTable maps an entity kind to its table and foreign key column.
// Dispatch is table-driven: the kind tag selects the schema, queries are
// otherwise identical across the three variants.
type discountTable struct {
	table    string
	fkColumn string
}

var discountTables = map[discount.EntityKind]discountTable{
	discount.KindCategory: {table: "category_discounts", fkColumn: "category_id"},
	discount.KindProduct:  {table: "product_discounts", fkColumn: "product_id"},
	discount.KindShipment: {table: "shipment_discounts", fkColumn: "shipment_id"},
}

// activePredicate renders the currently-active predicate in SQL form against
// the given placeholder. Must stay in sync with
// discount.Discount.CurrentlyActive.
func activePredicate(param string) string {
	return fmt.Sprintf(`(is_active AND start_at <= %[1]s AND end_at >= %[1]s)`, param)
}

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository over the three discount
// tables.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func tableFor(kind discount.EntityKind) (discountTable, error) {
	t, ok := discountTables[kind]
	if !ok {
		return discountTable{}, discount.ErrUnknownKind
	}
	return t, nil
}

// columns are positional: fk column second so one scanner covers all tables.
func selectSQL(t discountTable) string {
	return fmt.Sprintf(`SELECT id, %s, discount_percent, is_active, start_at, end_at, created_at, updated_at
		FROM %s`, t.fkColumn, t.table)
}

// ListByKind returns all rows of one variant, most recent first.
func (r *DiscountRepository) ListByKind(ctx context.Context, kind discount.EntityKind) ([]discount.Discount, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(t) + ` ORDER BY created_at DESC`
	return r.list(ctx, kind, sql)
}

// ListByKindActive filters one variant by the currently-active predicate.
func (r *DiscountRepository) ListByKindActive(ctx context.Context, kind discount.EntityKind, active bool, now time.Time) ([]discount.Discount, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	predicate := activePredicate("$1")
	if !active {
		predicate = "NOT " + predicate
	}
	sql := selectSQL(t) + ` WHERE ` + predicate + ` ORDER BY created_at DESC`
	return r.list(ctx, kind, sql, now)
}

// GetByID returns one row of one variant.
func (r *DiscountRepository) GetByID(ctx context.Context, kind discount.EntityKind, id uuid.UUID) (*discount.Discount, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	sql := selectSQL(t) + ` WHERE id = $1`
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting %s discount %q: %w", kind, id, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount(kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s discount %q: %w", kind, id, err)
	}
	return &d, nil
}

// ListByEntity returns the rows attached to one entity, most recent first.
func (r *DiscountRepository) ListByEntity(ctx context.Context, kind discount.EntityKind, entityID uuid.UUID) ([]discount.Discount, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(t) + fmt.Sprintf(` WHERE %s = $1 ORDER BY created_at DESC`, t.fkColumn)
	return r.list(ctx, kind, sql, entityID)
}

// ListActiveByEntity returns the currently-active rows for one entity.
func (r *DiscountRepository) ListActiveByEntity(ctx context.Context, kind discount.EntityKind, entityID uuid.UUID, now time.Time) ([]discount.Discount, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(t) + fmt.Sprintf(` WHERE %s = $1 AND `, t.fkColumn) + activePredicate("$2") + ` ORDER BY created_at DESC`
	return r.list(ctx, kind, sql, entityID, now)
}

// Create inserts a new discount row into the variant's table.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	t, err := tableFor(d.Kind)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (id, %s, discount_percent, is_active, start_at, end_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, t.table, t.fkColumn)
	if _, err := r.pool.Exec(ctx, sql,
		d.ID, d.EntityID, d.DiscountPercent, d.IsActive, d.StartAt, d.EndAt, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("creating %s discount: %w", d.Kind, err)
	}
	return nil
}

// Update persists administrator edits to a discount row.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	t, err := tableFor(d.Kind)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`UPDATE %s SET discount_percent = $2, start_at = $3, end_at = $4, updated_at = $5
		WHERE id = $1`, t.table)
	tag, err := r.pool.Exec(ctx, sql, d.ID, d.DiscountPercent, d.StartAt, d.EndAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating %s discount %q: %w", d.Kind, d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Delete removes a discount row from the variant's table.
func (r *DiscountRepository) Delete(ctx context.Context, kind discount.EntityKind, id uuid.UUID) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table), id)
	if err != nil {
		return fmt.Errorf("deleting %s discount %q: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag on a discount row.
func (r *DiscountRepository) SetActive(ctx context.Context, kind discount.EntityKind, id uuid.UUID, active bool) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`UPDATE %s SET is_active = $2, updated_at = now() WHERE id = $1`, t.table)
	tag, err := r.pool.Exec(ctx, sql, id, active)
	if err != nil {
		return fmt.Errorf("setting %s discount %q status: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func (r *DiscountRepository) list(ctx context.Context, kind discount.EntityKind, sql string, args ...any) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s discounts: %w", kind, err)
	}
	return pgx.CollectRows(rows, scanDiscount(kind))
}

func scanDiscount(kind discount.EntityKind) func(pgx.CollectableRow) (discount.Discount, error) {
	return func(row pgx.CollectableRow) (discount.Discount, error) {
		d := discount.Discount{Kind: kind}
		err := row.Scan(&d.ID, &d.EntityID, &d.DiscountPercent, &d.IsActive,
			&d.StartAt, &d.EndAt, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	}
}

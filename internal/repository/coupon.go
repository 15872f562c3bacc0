package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/marketplace-core/internal/domain/coupon"
)

const (
	couponColumns = `id, code, discount_percent, min_order_amount, max_uses, used_count,
		start_at, end_at, is_active, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	// The currently-active predicate in SQL form. Must stay in sync with
	// coupon.Coupon.CurrentlyActive.
	couponActivePredicate = `(is_active AND used_count < max_uses AND start_at <= $1 AND end_at >= $1)`

	listCouponsActiveSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE ` + couponActivePredicate + ` ORDER BY created_at DESC`

	listCouponsInactiveSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE NOT ` + couponActivePredicate + ` ORDER BY created_at DESC`

	listCouponCodesSQL = `SELECT code FROM coupons`

	insertCouponSQL = `INSERT INTO coupons (id, code, discount_percent, min_order_amount,
		max_uses, used_count, start_at, end_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateCouponSQL = `UPDATE coupons SET discount_percent = $2, min_order_amount = $3,
		max_uses = $4, start_at = $5, end_at = $6, updated_at = $7
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	setCouponActiveSQL = `UPDATE coupons SET is_active = $2, updated_at = now() WHERE id = $1`

	lockCouponSQL = `SELECT used_count, max_uses FROM coupons WHERE id = $1 FOR UPDATE`

	incrementUsedCountSQL = `UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1`

	insertUsageSQL = `INSERT INTO coupon_usages (id, coupon_id, user_id) VALUES ($1, $2, $3)`

	listUsagesSQL = `SELECT id, coupon_id, user_id, used_at FROM coupon_usages
		ORDER BY used_at DESC`

	listUsagesByCouponSQL = `SELECT id, coupon_id, user_id, used_at FROM coupon_usages
		WHERE coupon_id = $1 ORDER BY used_at DESC`

	listUsagesByUserSQL = `SELECT id, coupon_id, user_id, used_at FROM coupon_usages
		WHERE user_id = $1 ORDER BY used_at DESC`
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByCode looks up a coupon by its code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getCoupon(ctx, getCouponByCodeSQL, code)
}

// GetByID looks up a coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	return r.getCoupon(ctx, getCouponByIDSQL, id)
}

func (r *CouponRepository) getCoupon(ctx context.Context, sql string, arg any) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting coupon: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon: %w", err)
	}
	return &c, nil
}

// List returns all coupons, most recent first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListByActive returns coupons filtered by the currently-active predicate
// evaluated at the given instant.
func (r *CouponRepository) ListByActive(ctx context.Context, active bool, now time.Time) ([]coupon.Coupon, error) {
	sql := listCouponsActiveSQL
	if !active {
		sql = listCouponsInactiveSQL
	}
	rows, err := r.pool.Query(ctx, sql, now)
	if err != nil {
		return nil, fmt.Errorf("listing coupons by status: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListCodes returns every issued coupon code. Used to seed the code filter.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
}

// Create persists a new coupon. A taken code returns coupon.ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.DiscountPercent, c.MinOrderAmount,
		c.MaxUses, c.UsedCount, c.StartAt, c.EndAt, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update persists administrator edits. The code, counter, and flag are not
// touched here; status changes go through SetActive and the counter only
// moves via Redeem.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.DiscountPercent, c.MinOrderAmount, c.MaxUses, c.StartAt, c.EndAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon; usage rows cascade.
func (r *CouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag.
func (r *CouponRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("setting coupon %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Redeem consumes one redemption slot and records the usage, all inside one
// transaction holding the coupon row lock. The cap check and the increment
// are inseparable, so two redemptions racing on the last slot serialize and
// exactly one succeeds; the other gets coupon.ErrExpired.
func (r *CouponRepository) Redeem(ctx context.Context, couponID, userID uuid.UUID) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var usedCount, maxUses int
		if err := tx.QueryRow(ctx, lockCouponSQL, couponID).Scan(&usedCount, &maxUses); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return coupon.ErrNotFound
			}
			return fmt.Errorf("locking coupon %q: %w", couponID, err)
		}

		if usedCount >= maxUses {
			return coupon.ErrExpired
		}

		if _, err := tx.Exec(ctx, incrementUsedCountSQL, couponID); err != nil {
			return fmt.Errorf("incrementing coupon %q uses: %w", couponID, err)
		}
		if _, err := tx.Exec(ctx, insertUsageSQL, uuid.New(), couponID, userID); err != nil {
			return fmt.Errorf("recording coupon %q usage: %w", couponID, err)
		}
		return nil
	})
}

// ListUsages returns all redemption events, most recent first.
func (r *CouponRepository) ListUsages(ctx context.Context) ([]coupon.Usage, error) {
	return r.listUsages(ctx, listUsagesSQL)
}

// ListUsagesByCoupon returns one coupon's redemption events.
func (r *CouponRepository) ListUsagesByCoupon(ctx context.Context, couponID uuid.UUID) ([]coupon.Usage, error) {
	return r.listUsages(ctx, listUsagesByCouponSQL, couponID)
}

// ListUsagesByUser returns one user's redemption events.
func (r *CouponRepository) ListUsagesByUser(ctx context.Context, userID uuid.UUID) ([]coupon.Usage, error) {
	return r.listUsages(ctx, listUsagesByUserSQL, userID)
}

func (r *CouponRepository) listUsages(ctx context.Context, sql string, args ...any) ([]coupon.Usage, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing coupon usages: %w", err)
	}
	return pgx.CollectRows(rows, scanUsage)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountPercent, &c.MinOrderAmount, &c.MaxUses, &c.UsedCount,
		&c.StartAt, &c.EndAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func scanUsage(row pgx.CollectableRow) (coupon.Usage, error) {
	var u coupon.Usage
	err := row.Scan(&u.ID, &u.CouponID, &u.UserID, &u.UsedAt)
	return u, err
}

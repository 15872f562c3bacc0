package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/cart"
	"github.com/xenking/marketplace-core/internal/domain/stock"
)

const (
	createCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		RETURNING id, user_id, total, coupon_id, coupon_amount, created_at, updated_at`

	getCartByIDSQL = `SELECT id, user_id, total, coupon_id, coupon_amount, created_at, updated_at
		FROM carts WHERE id = $1`

	getCartByUserSQL = `SELECT id, user_id, total, coupon_id, coupon_amount, created_at, updated_at
		FROM carts WHERE user_id = $1`

	getCartTotalSQL = `SELECT total FROM carts WHERE id = $1`

	lockCartSQL = `SELECT id FROM carts WHERE id = $1 FOR UPDATE`

	// recomputeTotalSQL refreshes the persisted derived total from the
	// surviving lines. Always executed in the same transaction as the line
	// mutation, after the cart row lock is held.
	recomputeTotalSQL = `UPDATE carts SET
		total = COALESCE((SELECT SUM(unit_price * quantity) FROM cart_items WHERE cart_id = $1), 0),
		updated_at = now()
		WHERE id = $1`

	listCartItemsSQL = `SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at`

	getCartItemSQL = `SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items WHERE id = $1`

	getCartItemByProductSQL = `SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	// upsertCartItemSQL merges quantities on the (cart_id, product_id) unique
	// key so two racing adds of the same product never produce two lines. It
	// returns the stored line so the merged quantity can be re-checked against
	// stock before the transaction commits.
	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, cart_id, product_id, quantity, unit_price, created_at, updated_at`

	itemCartIDSQL = `SELECT cart_id FROM cart_items WHERE id = $1`

	setItemQuantitySQL = `UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1
		RETURNING id, cart_id, product_id, quantity, unit_price, created_at, updated_at`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	resetCartTotalSQL = `UPDATE carts SET total = 0, updated_at = now() WHERE id = $1`

	applyCouponSQL = `UPDATE carts SET coupon_id = $2, coupon_amount = $3, updated_at = now()
		WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Every
// mutating operation locks the cart row before touching lines, so the
// persisted total and the line set change as one atomic unit per cart.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Create inserts an empty cart for the user. Carts are 1:1 with users.
func (r *CartRepository) Create(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, createCartSQL, uuid.New(), userID)
	if err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// GetByID returns a cart by its identifier.
func (r *CartRepository) GetByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.getCart(ctx, getCartByIDSQL, id)
}

// GetByUser returns the cart owned by the given user.
func (r *CartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return r.getCart(ctx, getCartByUserSQL, userID)
}

func (r *CartRepository) getCart(ctx context.Context, sql string, arg any) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	return &c, nil
}

// GetTotal returns the persisted derived total.
func (r *CartRepository) GetTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, getCartTotalSQL, cartID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, cart.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("getting cart total %q: %w", cartID, err)
	}
	return total, nil
}

// ListItems returns all lines in the cart in insertion order.
func (r *CartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// GetItem returns a single cart line by its identifier.
func (r *CartRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting cart item %q: %w", itemID, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart item %q: %w", itemID, err)
	}
	return &item, nil
}

// GetItemByProduct returns the cart line for one product, if present.
func (r *CartRepository) GetItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemByProductSQL, cartID, productID)
	if err != nil {
		return nil, fmt.Errorf("getting cart item by product: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart item by product: %w", err)
	}
	return &item, nil
}

// InsertItem adds a line (merging quantities when the product already has
// one) and recomputes the cart total in the same transaction. The merged
// quantity is validated against current stock while the cart lock is held;
// when it exceeds availability the whole transaction rolls back. On success
// item carries the stored line, including any merged quantity.
func (r *CartRepository) InsertItem(ctx context.Context, item *cart.Item) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCart(ctx, tx, item.CartID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, upsertCartItemSQL,
			item.ID, item.CartID, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("inserting cart item: %w", err)
		}
		stored, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
		if err != nil {
			return fmt.Errorf("inserting cart item: %w", err)
		}

		var available int
		if err := tx.QueryRow(ctx, productStockSQL, item.ProductID).Scan(&available); err != nil {
			return fmt.Errorf("checking stock for product %q: %w", item.ProductID, err)
		}
		if err := stock.Validate(stored.Quantity, available); err != nil {
			return err
		}

		*item = stored
		_, err = tx.Exec(ctx, recomputeTotalSQL, item.CartID)
		return err
	})
}

// SetItemQuantity sets a line to an absolute quantity and recomputes the cart
// total in the same transaction.
func (r *CartRepository) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*cart.Item, error) {
	var updated cart.Item
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cartID, err := itemCartID(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, setItemQuantitySQL, itemID, quantity)
		if err != nil {
			return fmt.Errorf("updating cart item %q: %w", itemID, err)
		}
		updated, err = pgx.CollectExactlyOneRow(rows, scanCartItem)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrItemNotFound
			}
			return fmt.Errorf("updating cart item %q: %w", itemID, err)
		}

		_, err = tx.Exec(ctx, recomputeTotalSQL, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem removes a line and recomputes the cart total in the same
// transaction. Deleting an absent line returns cart.ErrItemNotFound.
func (r *CartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cartID, err := itemCartID(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, deleteCartItemSQL, itemID)
		if err != nil {
			return fmt.Errorf("deleting cart item %q: %w", itemID, err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrItemNotFound
		}

		_, err = tx.Exec(ctx, recomputeTotalSQL, cartID)
		return err
	})
}

// Clear deletes every line and resets the total to zero. Clearing an empty
// cart succeeds.
func (r *CartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
			return fmt.Errorf("clearing cart %q: %w", cartID, err)
		}
		_, err := tx.Exec(ctx, resetCartTotalSQL, cartID)
		return err
	})
}

// ApplyCoupon stores the coupon reference and its computed amount on the cart.
func (r *CartRepository) ApplyCoupon(ctx context.Context, cartID, couponID uuid.UUID, amount decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, applyCouponSQL, cartID, couponID, amount)
	if err != nil {
		return fmt.Errorf("applying coupon to cart %q: %w", cartID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// lockCart takes the per-cart write lock that serializes aggregate mutations.
func lockCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrNotFound
		}
		return fmt.Errorf("locking cart %q: %w", cartID, err)
	}
	return nil
}

func itemCartID(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (uuid.UUID, error) {
	var cartID uuid.UUID
	if err := tx.QueryRow(ctx, itemCartIDSQL, itemID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, cart.ErrItemNotFound
		}
		return uuid.Nil, fmt.Errorf("resolving cart for item %q: %w", itemID, err)
	}
	return cartID, nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var c cart.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.Total, &c.CouponID, &c.CouponAmount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

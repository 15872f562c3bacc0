package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/marketplace-core/internal/domain/order"
	"github.com/xenking/marketplace-core/internal/domain/stock"
)

const (
	orderColumns = `id, order_number, user_id, status, subtotal, coupon_id, coupon_amount, total,
		created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, status, subtotal, coupon_id, coupon_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	// decrementStockSQL only succeeds when enough inventory remains; a zero
	// row count means stock ran out since the cart was priced.
	decrementStockSQL = `UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`

	productStockSQL = `SELECT stock_quantity FROM products WHERE id = $1`

	resetCartAfterOrderSQL = `UPDATE carts SET total = 0, coupon_id = NULL, coupon_amount = 0, updated_at = now()
		WHERE id = $1`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, unit_price FROM order_items
		WHERE order_id = $1 ORDER BY created_at`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart persists the order snapshot, decrements product stock, and
// clears the source cart in a single transaction. When any product's stock no
// longer covers its line, the whole transaction rolls back with a typed stock
// error.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *order.Order, cartID uuid.UUID) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, insertOrderSQL,
			o.ID, o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.CouponID, o.CouponAmount, o.Total,
		).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice,
			); err != nil {
				return fmt.Errorf("inserting order item: %w", err)
			}

			tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", item.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return stockShortfall(ctx, tx, item.ProductID, item.Quantity)
			}
		}

		if _, err := tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
			return fmt.Errorf("clearing cart %q: %w", cartID, err)
		}
		if _, err := tx.Exec(ctx, resetCartAfterOrderSQL, cartID); err != nil {
			return fmt.Errorf("resetting cart %q: %w", cartID, err)
		}
		return nil
	})
}

// stockShortfall reads the current availability to build the typed stock
// error the conditional decrement refused on.
func stockShortfall(ctx context.Context, tx pgx.Tx, productID uuid.UUID, requested int) error {
	var available int
	if err := tx.QueryRow(ctx, productStockSQL, productID).Scan(&available); err != nil {
		return fmt.Errorf("reading stock for %q: %w", productID, err)
	}
	if err := stock.Validate(requested, available); err != nil {
		return err
	}
	return fmt.Errorf("stock decrement failed for %q", productID)
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getOrder(ctx, getOrderByIDSQL, id)
}

// GetByOrderNumber returns an order by its public number.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, number uuid.UUID) (*order.Order, error) {
	return r.getOrder(ctx, getOrderByNumberSQL, number)
}

func (r *OrderRepository) getOrder(ctx context.Context, sql string, arg any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}

	items, err := r.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// List returns all orders without their items, most recent first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByUser returns one user's orders without their items, most recent first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus moves the order to a new lifecycle state and returns the
// refreshed order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order items %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Subtotal,
		&o.CouponID, &o.CouponAmount, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice)
	return item, err
}

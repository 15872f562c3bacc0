package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/coupon"
	"github.com/xenking/marketplace-core/internal/domain/product"
	"github.com/xenking/marketplace-core/internal/domain/stock"
)

// Service encapsulates cart business logic: stock-guarded line mutation,
// quantity merging, and coupon application.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.OrderValidator
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository, coupons coupon.OrderValidator) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
	}
}

// GetByID returns a cart by its identifier.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Cart, error) {
	return s.carts.GetByID(ctx, id)
}

// GetByUser returns the cart owned by the given user.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.carts.GetByUser(ctx, userID)
}

// EnsureForUser returns the user's cart, creating an empty one on first use.
func (s *Service) EnsureForUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return s.carts.Create(ctx, userID)
	}
	return c, err
}

// GetTotal returns the cart's persisted total.
func (s *Service) GetTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	return s.carts.GetTotal(ctx, cartID)
}

// ListItems returns all lines in the cart.
func (s *Service) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	return s.carts.ListItems(ctx, cartID)
}

// GetItem returns a single cart line.
func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	return s.carts.GetItem(ctx, itemID)
}

// AddItem adds a product to the cart. When the product already has a line,
// the quantities are merged instead of creating a duplicate; the merged
// quantity is re-validated against current stock. New lines snapshot the
// product's current price.
func (s *Service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.carts.GetByID(ctx, cartID); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	existing, err := s.carts.GetItemByProduct(ctx, cartID, productID)
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		if err := stock.Validate(newQuantity, p.StockQuantity); err != nil {
			return nil, err
		}
		return s.carts.SetItemQuantity(ctx, existing.ID, newQuantity)

	case errors.Is(err, ErrItemNotFound):
		if err := stock.Validate(quantity, p.StockQuantity); err != nil {
			return nil, err
		}
		item := &Item{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: p.Price,
		}
		if err := s.carts.InsertItem(ctx, item); err != nil {
			return nil, errors.Wrap(err, "insert cart item")
		}
		return item, nil

	default:
		return nil, errors.Wrap(err, "find cart item")
	}
}

// UpdateItemQuantity sets the line to an absolute quantity, re-validated
// against current stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.carts.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if err := stock.Validate(quantity, p.StockQuantity); err != nil {
		return nil, err
	}

	return s.carts.SetItemQuantity(ctx, itemID, quantity)
}

// RemoveItem deletes a cart line. Removing an absent line is an error, not a
// no-op.
func (s *Service) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return s.carts.DeleteItem(ctx, itemID)
}

// Clear deletes every line and resets the total to zero. Clearing an already
// empty cart succeeds.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.carts.GetByID(ctx, cartID); err != nil {
		return err
	}
	return s.carts.Clear(ctx, cartID)
}

// ApplyCoupon validates the coupon code against the cart total and stores the
// coupon reference plus the computed discount amount on the cart. The total
// keeps its sub-total-before-discount semantics.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.ListItems(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	if len(items) == 0 {
		return nil, ErrEmpty
	}

	cpn, err := s.coupons.ValidateForOrder(ctx, code, c.Total)
	if err != nil {
		return nil, err
	}

	amount := cpn.DiscountValue(c.Total)
	if err := s.carts.ApplyCoupon(ctx, cartID, cpn.ID, amount); err != nil {
		return nil, errors.Wrap(err, "apply coupon")
	}

	c.CouponID = &cpn.ID
	c.CouponAmount = amount
	return c, nil
}

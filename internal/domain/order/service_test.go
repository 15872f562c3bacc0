package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/marketplace-core/internal/domain/cart"
	"github.com/xenking/marketplace-core/internal/domain/coupon"
)

// --- Mock implementations ---

// mockCartRepo backs checkout with a single cart; only the read side is
// exercised by the order service.
type mockCartRepo struct {
	cart  *cart.Cart
	items []cart.Item
}

func (m *mockCartRepo) GetByID(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	if m.cart == nil || m.cart.ID != id {
		return nil, cart.ErrNotFound
	}
	clone := *m.cart
	return &clone, nil
}

func (m *mockCartRepo) ListItems(_ context.Context, cartID uuid.UUID) ([]cart.Item, error) {
	if m.cart == nil || m.cart.ID != cartID {
		return nil, cart.ErrNotFound
	}
	return append([]cart.Item(nil), m.items...), nil
}

func (m *mockCartRepo) Create(_ context.Context, _ uuid.UUID) (*cart.Cart, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) GetByUser(_ context.Context, _ uuid.UUID) (*cart.Cart, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) GetTotal(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) GetItem(_ context.Context, _ uuid.UUID) (*cart.Item, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) GetItemByProduct(_ context.Context, _, _ uuid.UUID) (*cart.Item, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) InsertItem(_ context.Context, _ *cart.Item) error {
	panic("not used by checkout")
}

func (m *mockCartRepo) SetItemQuantity(_ context.Context, _ uuid.UUID, _ int) (*cart.Item, error) {
	panic("not used by checkout")
}

func (m *mockCartRepo) DeleteItem(_ context.Context, _ uuid.UUID) error {
	panic("not used by checkout")
}

func (m *mockCartRepo) Clear(_ context.Context, _ uuid.UUID) error {
	panic("not used by checkout")
}

func (m *mockCartRepo) ApplyCoupon(_ context.Context, _, _ uuid.UUID, _ decimal.Decimal) error {
	panic("not used by checkout")
}

// mockLedger validates against a single coupon and records call order so tests
// can assert the redemption happened before the order write.
type mockLedger struct {
	coupon      *coupon.Coupon
	redeemErr   error
	validateErr error
	calls       *[]string
}

func (m *mockLedger) ValidateCouponID(_ context.Context, id uuid.UUID, subtotal decimal.Decimal) (*coupon.Coupon, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, "validate")
	}
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	if m.coupon == nil || m.coupon.ID != id {
		return nil, coupon.ErrNotFound
	}
	if subtotal.LessThan(m.coupon.MinOrderAmount) {
		return nil, &coupon.MinimumOrderNotMetError{Required: m.coupon.MinOrderAmount, Actual: subtotal}
	}
	return m.coupon, nil
}

func (m *mockLedger) Redeem(_ context.Context, _, _ uuid.UUID) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, "redeem")
	}
	return m.redeemErr
}

type mockOrderRepo struct {
	byID      map[uuid.UUID]*Order
	createErr error
	calls     *[]string
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[uuid.UUID]*Order)}
}

func (m *mockOrderRepo) CreateFromCart(_ context.Context, o *Order, _ uuid.UUID) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, "create")
	}
	if m.createErr != nil {
		return m.createErr
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	clone := *o
	m.byID[o.ID] = &clone
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) GetByOrderNumber(_ context.Context, number uuid.UUID) (*Order, error) {
	for _, o := range m.byID {
		if o.OrderNumber == number {
			clone := *o
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	out := make([]Order, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	clone := *o
	return &clone, nil
}

// --- Helpers ---

func newCheckoutCart(userID uuid.UUID, items ...cart.Item) *mockCartRepo {
	cartID := uuid.New()
	total := decimal.Zero
	for i := range items {
		items[i].CartID = cartID
		total = total.Add(items[i].Total())
	}
	return &mockCartRepo{
		cart:  &cart.Cart{ID: cartID, UserID: userID, Total: total},
		items: items,
	}
}

func cartLine(price string, quantity int) cart.Item {
	return cart.Item{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
	}
}

// --- Tests ---

func TestCheckout(t *testing.T) {
	userID := uuid.New()
	carts := newCheckoutCart(userID, cartLine("10.00", 3), cartLine("5.50", 2))
	orders := newMockOrderRepo()
	svc := NewService(carts, &mockLedger{}, orders)

	o, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, userID, o.UserID)
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("41.00")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("41.00")))
	assert.True(t, o.CouponAmount.IsZero())
	assert.Nil(t, o.CouponID)
	require.Len(t, o.Items, 2)
	for _, item := range o.Items {
		assert.Equal(t, o.ID, item.OrderID)
	}
	assert.NotEqual(t, uuid.Nil, o.OrderNumber)

	stored, err := orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(o.Total))
}

func TestCheckout_CartNotFound(t *testing.T) {
	svc := NewService(&mockCartRepo{}, &mockLedger{}, newMockOrderRepo())

	_, err := svc.Checkout(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckout_OwnershipMismatch(t *testing.T) {
	carts := newCheckoutCart(uuid.New(), cartLine("10.00", 1))
	svc := NewService(carts, &mockLedger{}, newMockOrderRepo())

	// Another user's cart id behaves exactly like a missing cart.
	_, err := svc.Checkout(context.Background(), carts.cart.ID, uuid.New())
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckout_EmptyCart(t *testing.T) {
	userID := uuid.New()
	carts := newCheckoutCart(userID)
	svc := NewService(carts, &mockLedger{}, newMockOrderRepo())

	_, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.ErrorIs(t, err, cart.ErrEmpty)
}

func TestCheckout_AppliesCoupon(t *testing.T) {
	userID := uuid.New()
	cpn := &coupon.Coupon{ID: uuid.New(), Code: "SAVE20", DiscountPercent: 20, MaxUses: 10}

	carts := newCheckoutCart(userID, cartLine("50.00", 2))
	carts.cart.CouponID = &cpn.ID
	orders := newMockOrderRepo()
	svc := NewService(carts, &mockLedger{coupon: cpn}, orders)

	o, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, o.CouponAmount.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("80.00")))
	require.NotNil(t, o.CouponID)
	assert.Equal(t, cpn.ID, *o.CouponID)
}

func TestCheckout_TotalNeverNegative(t *testing.T) {
	userID := uuid.New()
	cpn := &coupon.Coupon{ID: uuid.New(), Code: "FREE", DiscountPercent: 100, MaxUses: 10}

	carts := newCheckoutCart(userID, cartLine("19.99", 1))
	carts.cart.CouponID = &cpn.ID
	svc := NewService(carts, &mockLedger{coupon: cpn}, newMockOrderRepo())

	o, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)
	assert.True(t, o.Total.IsZero())
	assert.True(t, o.CouponAmount.Equal(decimal.RequireFromString("19.99")))
}

func TestCheckout_CouponNoLongerValid(t *testing.T) {
	userID := uuid.New()
	couponID := uuid.New()

	carts := newCheckoutCart(userID, cartLine("10.00", 1))
	carts.cart.CouponID = &couponID
	orders := newMockOrderRepo()
	ledger := &mockLedger{validateErr: coupon.ErrExpired}
	svc := NewService(carts, ledger, orders)

	_, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.ErrorIs(t, err, coupon.ErrExpired)
	assert.Empty(t, orders.byID, "no order is written when the coupon fails validation")
}

func TestCheckout_RedeemsBeforeOrderWrite(t *testing.T) {
	userID := uuid.New()
	cpn := &coupon.Coupon{ID: uuid.New(), Code: "SAVE20", DiscountPercent: 20, MaxUses: 10}

	carts := newCheckoutCart(userID, cartLine("50.00", 2))
	carts.cart.CouponID = &cpn.ID
	var calls []string
	orders := newMockOrderRepo()
	orders.calls = &calls
	ledger := &mockLedger{coupon: cpn, calls: &calls}
	svc := NewService(carts, ledger, orders)

	_, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "redeem", "create"}, calls)
}

func TestCheckout_RedeemFailureAborts(t *testing.T) {
	userID := uuid.New()
	cpn := &coupon.Coupon{ID: uuid.New(), Code: "LAST1", DiscountPercent: 20, MaxUses: 1}

	carts := newCheckoutCart(userID, cartLine("50.00", 2))
	carts.cart.CouponID = &cpn.ID
	orders := newMockOrderRepo()
	ledger := &mockLedger{coupon: cpn, redeemErr: coupon.ErrExpired}
	svc := NewService(carts, ledger, orders)

	_, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.ErrorIs(t, err, coupon.ErrExpired)
	assert.Empty(t, orders.byID, "losing the last redemption slot aborts checkout")
}

func TestCheckout_CreateFailureWrapped(t *testing.T) {
	userID := uuid.New()
	carts := newCheckoutCart(userID, cartLine("10.00", 1))
	orders := newMockOrderRepo()
	orders.createErr = errors.New("connection reset")
	svc := NewService(carts, &mockLedger{}, orders)

	_, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "create order")
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "paid", "shipped", "delivered", "cancelled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	_, err := ParseStatus("refunded")
	require.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatus(t *testing.T) {
	userID := uuid.New()
	carts := newCheckoutCart(userID, cartLine("10.00", 1))
	orders := newMockOrderRepo()
	svc := NewService(carts, &mockLedger{}, orders)

	o, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), StatusPaid)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByOrderNumber(t *testing.T) {
	userID := uuid.New()
	carts := newCheckoutCart(userID, cartLine("10.00", 1))
	orders := newMockOrderRepo()
	svc := NewService(carts, &mockLedger{}, orders)

	o, err := svc.Checkout(context.Background(), carts.cart.ID, userID)
	require.NoError(t, err)

	byNumber, err := svc.GetByOrderNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	_, err = svc.GetByOrderNumber(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

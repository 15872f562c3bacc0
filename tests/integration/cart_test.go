//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

type createCouponRequest struct {
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	MinOrderAmount  string    `json:"min_order_amount"`
	MaxUses         int       `json:"max_uses"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	IsActive        bool      `json:"is_active"`
}

type couponResponse struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	MaxUses         int    `json:"max_uses"`
	UsedCount       int    `json:"used_count"`
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return f
}

// createCoupon issues a coupon through the admin API so the in-process code
// filter learns the code immediately.
func createCoupon(t *testing.T, percent int, minOrder string, maxUses int) couponResponse {
	t.Helper()

	code := fmt.Sprintf("IT-%s", uuid.NewString()[:8])
	resp := doJSON(t, http.MethodPost, "/api/coupons", "", createCouponRequest{
		Code:            code,
		DiscountPercent: percent,
		MinOrderAmount:  minOrder,
		MaxUses:         maxUses,
		StartAt:         time.Now().Add(-time.Hour),
		EndAt:           time.Now().Add(24 * time.Hour),
		IsActive:        true,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create coupon: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[couponResponse](t, resp)
}

func TestCart_RequiresIdentity(t *testing.T) {
	resp := doGet(t, "/api/cart", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCart_UnregisteredIdentity(t *testing.T) {
	// Identity is whatever the caller sends in X-User-ID. This ID exists
	// nowhere in the database, and first contact must still create a cart.
	user := uuid.NewString()

	resp := doGet(t, "/api/cart", user)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first contact: expected 200, got %d", resp.StatusCode)
	}
	c := decodeJSON[cartResponse](t, resp)
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(c.Items))
	}
}

func TestCartFlow(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)
	cable := products["USB-C Cable"] // 9.99

	// First touch creates an empty cart.
	resp := doGet(t, "/api/cart", user)
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if got := mustFloat(t, c.Total); got != 0 {
		t.Fatalf("new cart total: got %v, want 0", got)
	}
	if len(c.Items) != 0 {
		t.Fatalf("new cart items: got %d, want 0", len(c.Items))
	}

	// Add 3 units: one line, total 29.97.
	resp = doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{ProductID: cable.ID, Quantity: 3})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add item: expected 201, got %d", resp.StatusCode)
	}
	line := decodeJSON[cartItemResponse](t, resp)
	resp.Body.Close()
	if line.Quantity != 3 {
		t.Fatalf("line quantity: got %d, want 3", line.Quantity)
	}

	resp = doGet(t, "/api/cart", user)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if got := mustFloat(t, c.Total); got != 29.97 {
		t.Fatalf("total after add: got %v, want 29.97", got)
	}
	if len(c.Items) != 1 {
		t.Fatalf("lines after add: got %d, want 1", len(c.Items))
	}

	// Adding the same product again merges into the existing line.
	resp = doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{ProductID: cable.ID, Quantity: 2})
	line = decodeJSON[cartItemResponse](t, resp)
	resp.Body.Close()
	if line.Quantity != 5 {
		t.Fatalf("merged quantity: got %d, want 5", line.Quantity)
	}

	resp = doGet(t, "/api/cart", user)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(c.Items) != 1 {
		t.Fatalf("lines after merge: got %d, want 1", len(c.Items))
	}
	if got := mustFloat(t, c.Total); got != 49.95 {
		t.Fatalf("total after merge: got %v, want 49.95", got)
	}

	// Absolute quantity update.
	itemPath := "/api/cart/items/" + line.ID
	resp = doJSON(t, http.MethodPut, itemPath, user, map[string]int{"quantity": 2})
	line = decodeJSON[cartItemResponse](t, resp)
	resp.Body.Close()
	if line.Quantity != 2 {
		t.Fatalf("updated quantity: got %d, want 2", line.Quantity)
	}

	resp = doGet(t, "/api/cart", user)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if got := mustFloat(t, c.Total); got != 19.98 {
		t.Fatalf("total after update: got %v, want 19.98", got)
	}

	// Removing the line restores the empty total.
	resp = doJSON(t, http.MethodDelete, itemPath, user, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove item: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/api/cart", user)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if got := mustFloat(t, c.Total); got != 0 {
		t.Fatalf("total after remove: got %v, want 0", got)
	}
}

func TestAddItem_ExceedsStock(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)
	keyboard := products["Mechanical Keyboard"] // stock 45

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{
		ProductID: keyboard.ID,
		Quantity:  keyboard.StockQuantity + 1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error == "" {
		t.Error("error body is empty")
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	user := uuid.NewString()

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{
		ProductID: uuid.NewString(),
		Quantity:  1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAddItem_ZeroQuantity(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{
		ProductID: products["USB-C Cable"].ID,
		Quantity:  0,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestApplyCoupon(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)
	coffee := products["Arabica Coffee Beans 1kg"] // 18.00
	cpn := createCoupon(t, 10, "0", 100)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{ProductID: coffee.ID, Quantity: 2})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/cart/coupon", user, applyCouponRequest{Code: cpn.Code})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply coupon: expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if c.CouponID == nil {
		t.Fatal("coupon not attached")
	}
	// 10% of 36.00. The cart total stays pre-discount.
	if got := mustFloat(t, c.CouponAmount); got != 3.6 {
		t.Errorf("coupon amount: got %v, want 3.6", got)
	}
	if got := mustFloat(t, c.Total); got != 36 {
		t.Errorf("total: got %v, want 36", got)
	}
}

func TestApplyCoupon_MinimumOrderNotMet(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)
	cpn := createCoupon(t, 25, "200.00", 100)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{
		ProductID: products["Olive Oil 750ml"].ID, // 12.50
		Quantity:  1,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/cart/coupon", user, applyCouponRequest{Code: cpn.Code})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	user := uuid.NewString()
	products := seededProducts(t)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", user, addItemRequest{
		ProductID: products["Wool Beanie"].ID,
		Quantity:  1,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/cart/coupon", user, applyCouponRequest{Code: "NEVER-ISSUED"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

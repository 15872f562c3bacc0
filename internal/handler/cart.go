package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/cart"
)

type cartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type cartResponse struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	Total        decimal.Decimal    `json:"total"`
	CouponID     *uuid.UUID         `json:"coupon_id,omitempty"`
	CouponAmount decimal.Decimal    `json:"coupon_amount"`
	Items        []cartItemResponse `json:"items"`
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func newCartResponse(c *cart.Cart, items []cart.Item) cartResponse {
	resp := cartResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		Total:        c.Total,
		CouponID:     c.CouponID,
		CouponAmount: c.CouponAmount,
		Items:        make([]cartItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = newCartItemResponse(&item)
	}
	return resp
}

func newCartItemResponse(item *cart.Item) cartItemResponse {
	return cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Total:     item.Total(),
	}
}

// getCart returns the caller's cart, creating an empty one on first use.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	c, err := h.carts.EnsureForUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.carts.ListItems(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c, items))
}

func (h *Handler) getCartTotal(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	c, err := h.carts.GetByUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.carts.GetTotal(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"total": total})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.carts.EnsureForUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.carts.AddItem(r.Context(), c.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartItemResponse(item))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	item, err := h.carts.UpdateItemQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartItemResponse(item))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}

	if err := h.carts.RemoveItem(r.Context(), itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	c, err := h.carts.GetByUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), c.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		badRequest(w, "coupon code required")
		return
	}

	c, err := h.carts.GetByUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.carts.ApplyCoupon(r.Context(), c.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.carts.ListItems(r.Context(), updated.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(updated, items))
}

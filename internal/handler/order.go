package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/order"
)

type orderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	OrderNumber  uuid.UUID           `json:"order_number"`
	UserID       uuid.UUID           `json:"user_id"`
	Status       string              `json:"status"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	CouponID     *uuid.UUID          `json:"coupon_id,omitempty"`
	CouponAmount decimal.Decimal     `json:"coupon_amount"`
	Total        decimal.Decimal     `json:"total"`
	Items        []orderItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type checkoutRequest struct {
	CartID uuid.UUID `json:"cart_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func newOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		Status:       string(o.Status),
		Subtotal:     o.Subtotal,
		CouponID:     o.CouponID,
		CouponAmount: o.CouponAmount,
		Total:        o.Total,
		CreatedAt:    o.CreatedAt,
	}
	if len(o.Items) > 0 {
		resp.Items = make([]orderItemResponse, len(o.Items))
		for i, item := range o.Items {
			resp.Items[i] = orderItemResponse{
				ID:        item.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Total:     item.Total(),
			}
		}
	}
	return resp
}

// checkout snapshots the caller's cart into a new pending order.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.orders.Checkout(r.Context(), req.CartID, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// listOrders returns the caller's orders, most recent first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, "invalid X-User-ID header")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = newOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	number, err := uuid.Parse(chi.URLParam(r, "orderNumber"))
	if err != nil {
		badRequest(w, "invalid order number")
		return
	}

	o, err := h.orders.GetByOrderNumber(r.Context(), number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/domain/coupon"
)

type couponResponse struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	DiscountPercent int             `json:"discount_percent"`
	MinOrderAmount  decimal.Decimal `json:"min_order_amount"`
	MaxUses         int             `json:"max_uses"`
	UsedCount       int             `json:"used_count"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	IsActive        bool            `json:"is_active"`
}

type createCouponRequest struct {
	Code            string          `json:"code"`
	DiscountPercent int             `json:"discount_percent"`
	MinOrderAmount  decimal.Decimal `json:"min_order_amount"`
	MaxUses         int             `json:"max_uses"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	IsActive        bool            `json:"is_active"`
}

type updateCouponRequest struct {
	DiscountPercent *int             `json:"discount_percent"`
	MinOrderAmount  *decimal.Decimal `json:"min_order_amount"`
	MaxUses         *int             `json:"max_uses"`
	StartAt         *time.Time       `json:"start_at"`
	EndAt           *time.Time       `json:"end_at"`
}

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type validateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
}

type couponUsageResponse struct {
	ID       uuid.UUID `json:"id"`
	CouponID uuid.UUID `json:"coupon_id"`
	UserID   uuid.UUID `json:"user_id"`
	UsedAt   time.Time `json:"used_at"`
}

func newCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		MinOrderAmount:  c.MinOrderAmount,
		MaxUses:         c.MaxUses,
		UsedCount:       c.UsedCount,
		StartAt:         c.StartAt,
		EndAt:           c.EndAt,
		IsActive:        c.IsActive,
	}
}

func newCouponListResponse(coupons []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = newCouponResponse(&coupons[i])
	}
	return out
}

// parseActiveFilter reads an optional ?active= query parameter.
func parseActiveFilter(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get("active")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	active, err := parseActiveFilter(r)
	if err != nil {
		badRequest(w, "invalid active filter")
		return
	}

	coupons, err := h.coupons.List(r.Context(), active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponListResponse(coupons))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.coupons.Create(r.Context(), coupon.CreateParams{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		MinOrderAmount:  req.MinOrderAmount,
		MaxUses:         req.MaxUses,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		IsActive:        req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCouponResponse(c))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		badRequest(w, "invalid coupon id")
		return
	}

	c, err := h.coupons.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(c))
}

func (h *Handler) getCouponByCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		badRequest(w, "invalid coupon id")
		return
	}

	var req updateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.coupons.Update(r.Context(), id, coupon.UpdateParams{
		DiscountPercent: req.DiscountPercent,
		MinOrderAmount:  req.MinOrderAmount,
		MaxUses:         req.MaxUses,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		badRequest(w, "invalid coupon id")
		return
	}

	if err := h.coupons.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateCoupon(w http.ResponseWriter, r *http.Request) {
	h.setCouponStatus(w, r, true)
}

func (h *Handler) deactivateCoupon(w http.ResponseWriter, r *http.Request) {
	h.setCouponStatus(w, r, false)
}

func (h *Handler) setCouponStatus(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		badRequest(w, "invalid coupon id")
		return
	}

	if err := h.coupons.SetActive(r.Context(), id, active); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateCoupon checks a code against a hypothetical subtotal without
// consuming a redemption slot.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		badRequest(w, "coupon code required")
		return
	}

	c, err := h.ledger.ValidateForOrder(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateCouponResponse{
		Valid:    true,
		Discount: c.DiscountValue(req.Subtotal),
	})
}

func (h *Handler) listCouponUsages(w http.ResponseWriter, r *http.Request) {
	var couponID, usageUserID *uuid.UUID
	if raw := r.URL.Query().Get("coupon_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid coupon_id filter")
			return
		}
		couponID = &id
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid user_id filter")
			return
		}
		usageUserID = &id
	}

	usages, err := h.coupons.ListUsages(r.Context(), couponID, usageUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]couponUsageResponse, len(usages))
	for i, u := range usages {
		out[i] = couponUsageResponse{ID: u.ID, CouponID: u.CouponID, UserID: u.UserID, UsedAt: u.UsedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

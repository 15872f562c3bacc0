package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xenking/marketplace-core/internal/domain/discount"
)

type discountResponse struct {
	ID              uuid.UUID `json:"id"`
	Kind            string    `json:"kind"`
	EntityID        uuid.UUID `json:"entity_id"`
	DiscountPercent int       `json:"discount_percent"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	IsActive        bool      `json:"is_active"`
}

type createDiscountRequest struct {
	EntityID        uuid.UUID `json:"entity_id"`
	DiscountPercent int       `json:"discount_percent"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	IsActive        bool      `json:"is_active"`
}

type updateDiscountRequest struct {
	DiscountPercent *int       `json:"discount_percent"`
	StartAt         *time.Time `json:"start_at"`
	EndAt           *time.Time `json:"end_at"`
}

func newDiscountResponse(d *discount.Discount) discountResponse {
	return discountResponse{
		ID:              d.ID,
		Kind:            string(d.Kind),
		EntityID:        d.EntityID,
		DiscountPercent: d.DiscountPercent,
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		IsActive:        d.IsActive,
	}
}

func newDiscountListResponse(discounts []discount.Discount) []discountResponse {
	out := make([]discountResponse, len(discounts))
	for i := range discounts {
		out[i] = newDiscountResponse(&discounts[i])
	}
	return out
}

func discountKind(r *http.Request) (discount.EntityKind, error) {
	return discount.ParseEntityKind(chi.URLParam(r, "kind"))
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := parseActiveFilter(r)
	if err != nil {
		badRequest(w, "invalid active filter")
		return
	}

	discounts, err := h.discounts.List(r.Context(), kind, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountListResponse(discounts))
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	d, err := h.discounts.Create(r.Context(), discount.CreateParams{
		Kind:            kind,
		EntityID:        req.EntityID,
		DiscountPercent: req.DiscountPercent,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		IsActive:        req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDiscountResponse(d))
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "discountID"))
	if err != nil {
		badRequest(w, "invalid discount id")
		return
	}

	d, err := h.discounts.GetByID(r.Context(), kind, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountResponse(d))
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "discountID"))
	if err != nil {
		badRequest(w, "invalid discount id")
		return
	}

	var req updateDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	d, err := h.discounts.Update(r.Context(), kind, id, discount.UpdateParams{
		DiscountPercent: req.DiscountPercent,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountResponse(d))
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "discountID"))
	if err != nil {
		badRequest(w, "invalid discount id")
		return
	}

	if err := h.discounts.Delete(r.Context(), kind, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateDiscount(w http.ResponseWriter, r *http.Request) {
	h.setDiscountStatus(w, r, true)
}

func (h *Handler) deactivateDiscount(w http.ResponseWriter, r *http.Request) {
	h.setDiscountStatus(w, r, false)
}

func (h *Handler) setDiscountStatus(w http.ResponseWriter, r *http.Request, active bool) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "discountID"))
	if err != nil {
		badRequest(w, "invalid discount id")
		return
	}

	if err := h.discounts.SetStatus(r.Context(), kind, id, active); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDiscountsByEntity(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		badRequest(w, "invalid entity id")
		return
	}

	activeOnly := false
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		activeOnly, err = strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "invalid active_only filter")
			return
		}
	}

	discounts, err := h.discounts.ListByEntity(r.Context(), kind, entityID, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountListResponse(discounts))
}

// effectiveDiscount resolves the single discount applying to an entity right
// now. 204 means no discount applies.
func (h *Handler) effectiveDiscount(w http.ResponseWriter, r *http.Request) {
	kind, err := discountKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		badRequest(w, "invalid entity id")
		return
	}

	d, err := h.discounts.EffectiveDiscount(r.Context(), kind, entityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newDiscountResponse(d))
}

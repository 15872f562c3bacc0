package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/marketplace-core/internal/domain/cart"
	"github.com/xenking/marketplace-core/internal/domain/coupon"
	"github.com/xenking/marketplace-core/internal/domain/discount"
	"github.com/xenking/marketplace-core/internal/domain/order"
	"github.com/xenking/marketplace-core/internal/domain/product"
	"github.com/xenking/marketplace-core/internal/domain/stock"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Validation failures are
// 400, missing resources 404, conflicting state transitions 409, and business
// rule rejections 422. Anything unmapped is a 500 with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr  *stock.InsufficientStockError
		minErr    *coupon.MinimumOrderNotMetError
		entityErr *discount.EntityNotFoundError
	)

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrInvalidPercent),
		errors.Is(err, coupon.ErrInvalidWindow),
		errors.Is(err, coupon.ErrInvalidMaxUses),
		errors.Is(err, discount.ErrInvalidPercent),
		errors.Is(err, discount.ErrInvalidWindow),
		errors.Is(err, discount.ErrUnknownKind),
		errors.Is(err, order.ErrUnknownStatus):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.As(err, &entityErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, coupon.ErrNoStatusChange),
		errors.Is(err, discount.ErrNoStatusChange):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, cart.ErrEmpty),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, stock.ErrOutOfStock),
		errors.As(err, &stockErr),
		errors.As(err, &minErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// userID extracts the caller identity from the X-User-ID header. Identity is
// supplied by the fronting gateway, not derived here.
func userID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-User-ID"))
}

// Package handler exposes the marketplace core over a thin JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/marketplace-core/internal/domain/cart"
	"github.com/xenking/marketplace-core/internal/domain/coupon"
	"github.com/xenking/marketplace-core/internal/domain/discount"
	"github.com/xenking/marketplace-core/internal/domain/order"
	"github.com/xenking/marketplace-core/internal/domain/product"
)

// Handler routes HTTP requests to the domain services.
type Handler struct {
	products  product.Repository
	carts     *cart.Service
	coupons   *coupon.Service
	ledger    *coupon.Ledger
	discounts *discount.Service
	orders    *order.Service
}

// New creates a Handler over the given services.
func New(products product.Repository, carts *cart.Service, coupons *coupon.Service, ledger *coupon.Ledger, discounts *discount.Service, orders *order.Service) *Handler {
	return &Handler{
		products:  products,
		carts:     carts,
		coupons:   coupons,
		ledger:    ledger,
		discounts: discounts,
		orders:    orders,
	}
}

// Routes assembles the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{productID}", h.getProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Get("/total", h.getCartTotal)
			r.Post("/items", h.addCartItem)
			r.Put("/items/{itemID}", h.updateCartItem)
			r.Delete("/items/{itemID}", h.removeCartItem)
			r.Post("/coupon", h.applyCoupon)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", h.listCoupons)
			r.Post("/", h.createCoupon)
			r.Post("/validate", h.validateCoupon)
			r.Get("/usages", h.listCouponUsages)
			r.Get("/code/{code}", h.getCouponByCode)
			r.Route("/{couponID}", func(r chi.Router) {
				r.Get("/", h.getCoupon)
				r.Patch("/", h.updateCoupon)
				r.Delete("/", h.deleteCoupon)
				r.Post("/activate", h.activateCoupon)
				r.Post("/deactivate", h.deactivateCoupon)
			})
		})

		r.Route("/discounts/{kind}", func(r chi.Router) {
			r.Get("/", h.listDiscounts)
			r.Post("/", h.createDiscount)
			r.Get("/entity/{entityID}", h.listDiscountsByEntity)
			r.Get("/entity/{entityID}/effective", h.effectiveDiscount)
			r.Route("/{discountID}", func(r chi.Router) {
				r.Get("/", h.getDiscount)
				r.Patch("/", h.updateDiscount)
				r.Delete("/", h.deleteDiscount)
				r.Post("/activate", h.activateDiscount)
				r.Post("/deactivate", h.deactivateDiscount)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/checkout", h.checkout)
			r.Get("/number/{orderNumber}", h.getOrderByNumber)
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Patch("/status", h.updateOrderStatus)
			})
		})
	})

	return r
}

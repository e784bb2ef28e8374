package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/plagued/storefront/internal/api"
	"github.com/plagued/storefront/internal/checkout"
	"github.com/plagued/storefront/internal/discount"
	"github.com/plagued/storefront/internal/domain"
	"github.com/plagued/storefront/internal/payment"
	"github.com/plagued/storefront/internal/stock"
)

// CheckoutFlow is the controller surface the handler drives.
type CheckoutFlow interface {
	Begin(ctx context.Context) (*domain.PaymentIntentSnapshot, error)
	Submit(ctx context.Context, form domain.ShippingContactForm, paymentMethodID string) error
	Status() checkout.Status
	Banner() string
	FieldErrors() domain.FieldErrors
}

// DiscountService applies and removes promo codes against the given cart.
type DiscountService interface {
	Apply(ctx context.Context, code string, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, error)
	Remove(ctx context.Context, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, error)
}

// CartReader exposes the current cart contents to checkout endpoints.
type CartReader interface {
	Lines() []domain.CartLine
}

// Backend is the slice of the REST client the handler proxies directly.
type Backend interface {
	Merch(ctx context.Context) ([]domain.Product, error)
	Config(ctx context.Context) (*api.ConfigResponse, error)
}

type CheckoutHandler struct {
	flow      CheckoutFlow
	discounts DiscountService
	cart      CartReader
	backend   Backend
	timeout   time.Duration
}

func NewCheckoutHandler(flow CheckoutFlow, discounts DiscountService, cart CartReader, backend Backend, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		flow:      flow,
		discounts: discounts,
		cart:      cart,
		backend:   backend,
		timeout:   timeout,
	}
}

type SubmitRequestDTO struct {
	domain.ShippingContactForm
	PaymentMethodID string `json:"payment_method_id"`
}

type CheckoutStateDTO struct {
	Status      checkout.Status               `json:"status"`
	Banner      string                        `json:"banner,omitempty"`
	FieldErrors domain.FieldErrors            `json:"field_errors,omitempty"`
	Intent      *domain.PaymentIntentSnapshot `json:"intent,omitempty"`
	Redirect    string                        `json:"redirect,omitempty"`
}

// Begin enters the checkout view and returns the fresh payment intent.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.flow.Begin(ctx)
	if err != nil {
		if errors.Is(err, payment.ErrEmptyCart) {
			respondJSON(w, http.StatusConflict, CheckoutStateDTO{
				Status:   h.flow.Status(),
				Redirect: "/merch",
			})
			return
		}
		if errors.Is(err, checkout.ErrSubmissionInFlight) {
			respondError(w, http.StatusConflict, "submission_in_flight", err.Error())
			return
		}
		respondJSON(w, http.StatusBadGateway, CheckoutStateDTO{
			Status: h.flow.Status(),
			Banner: h.flow.Banner(),
		})
		return
	}

	respondJSON(w, http.StatusOK, CheckoutStateDTO{
		Status: h.flow.Status(),
		Intent: snap,
	})
}

// Submit runs the full submission pipeline and maps each failure mode to a
// distinct status code so clients can react without parsing banner text.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentMethodID == "" {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment_method_id must not be empty")
		return
	}

	err := h.flow.Submit(ctx, req.ShippingContactForm, req.PaymentMethodID)
	if err == nil {
		state := CheckoutStateDTO{Status: h.flow.Status()}
		if state.Status == checkout.StatusSucceeded {
			state.Redirect = "/checkout/success"
		}
		respondJSON(w, http.StatusOK, state)
		return
	}

	state := CheckoutStateDTO{
		Status:      h.flow.Status(),
		Banner:      h.flow.Banner(),
		FieldErrors: h.flow.FieldErrors(),
	}

	switch {
	case errors.Is(err, checkout.ErrValidationFailed):
		respondJSON(w, http.StatusUnprocessableEntity, state)
	case errors.Is(err, payment.ErrEmptyCart):
		state.Redirect = "/merch"
		respondJSON(w, http.StatusConflict, state)
	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrCheckoutComplete),
		errors.Is(err, checkout.ErrDiscountInvalidated):
		respondJSON(w, http.StatusConflict, state)
	case errors.Is(err, stock.ErrCatalogFetch):
		respondJSON(w, http.StatusServiceUnavailable, state)
	case isStockConflict(err):
		respondJSON(w, http.StatusConflict, state)
	case errors.Is(err, checkout.ErrPaymentDeclined):
		respondJSON(w, http.StatusPaymentRequired, state)
	default:
		respondJSON(w, http.StatusInternalServerError, state)
	}
}

// ApplyDiscount validates a promo code and refreshes the payment intent.
func (h *CheckoutHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	snap, err := h.discounts.Apply(ctx, req.Code, h.cart.Lines())
	if err != nil {
		var rejection *discount.RejectionError
		if errors.As(err, &rejection) {
			respondError(w, http.StatusBadRequest, "invalid_discount_code", rejection.Detail)
			return
		}
		respondError(w, http.StatusBadGateway, "backend_unavailable", "could not validate discount code")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *CheckoutHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.discounts.Remove(ctx, h.cart.Lines())
	if err != nil {
		respondError(w, http.StatusBadGateway, "backend_unavailable", "could not refresh payment intent")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// Merch proxies the authoritative catalog.
func (h *CheckoutHandler) Merch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.backend.Merch(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "backend_unavailable", "could not fetch catalog")
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// Config proxies the storefront feature flags.
func (h *CheckoutHandler) Config(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cfg, err := h.backend.Config(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "backend_unavailable", "could not fetch config")
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func isStockConflict(err error) bool {
	var productGone *stock.ProductUnavailableError
	var variantGone *stock.VariantUnavailableError
	var insufficient *stock.InsufficientStockError
	return errors.As(err, &productGone) || errors.As(err, &variantGone) || errors.As(err, &insufficient)
}

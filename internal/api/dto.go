package api

import "github.com/plagued/storefront/internal/domain"

// Request/response shapes for the band backend. Responses are parsed and
// checked at this boundary; a payload missing required fields is rejected as
// ErrMalformedResponse instead of letting zero values leak upward.

type ValidateDiscountRequest struct {
	Code  string            `json:"code"`
	Items []domain.CartLine `json:"items"`
}

// DiscountInfo is the backend's answer to a valid code.
type DiscountInfo struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
	Description    string `json:"description,omitempty"`
}

type CreatePaymentIntentRequest struct {
	Items        []domain.CartLine `json:"items"`
	DiscountCode *string           `json:"discount_code"`
}

type paymentIntentResponse struct {
	ClientSecret   string `json:"clientSecret"`
	Subtotal       int64  `json:"subtotal"`
	ShippingCost   int64  `json:"shipping_cost"`
	ShippingMethod string `json:"shipping_method"`
	TotalAmount    int64  `json:"total_amount"`
	DiscountAmount int64  `json:"discount_amount"`
}

type ConfigResponse struct {
	DiscountCodesEnabled bool `json:"discount_codes_enabled"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

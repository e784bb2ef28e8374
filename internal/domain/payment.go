package domain

// PaymentIntentSnapshot is the backend's view of the payment intent amounts.
// All amounts are in pence and computed server-side; the client never
// recomputes or overrides the total. A snapshot is replaced wholesale when
// the discount state changes, never mutated in place.
type PaymentIntentSnapshot struct {
	ClientSecret   string `json:"clientSecret"`
	Subtotal       int64  `json:"subtotal"`
	ShippingCost   int64  `json:"shipping_cost"`
	ShippingMethod string `json:"shipping_method"`
	DiscountAmount int64  `json:"discount_amount"`
	Total          int64  `json:"total_amount"`
}

// DiscountApplication is a successfully validated promo code. It is only
// valid for the cart contents it was computed against, tracked by
// Fingerprint.
type DiscountApplication struct {
	Code        string
	Amount      int64
	Fingerprint string
}

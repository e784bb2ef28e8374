package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"

	"github.com/plagued/storefront/internal/domain"
)

// StripeConfirmer confirms the payment intent held by the client secret,
// attaching the shipping and contact fields so they land on the payment
// record. Redirect-based methods come back as ConfirmRequiresAction with
// the return URL carrying the customer onward.
type StripeConfirmer struct {
	returnURL string
}

func NewStripeConfirmer(apiKey, returnURL string) *StripeConfirmer {
	stripe.Key = apiKey
	return &StripeConfirmer{returnURL: returnURL}
}

func (c *StripeConfirmer) Confirm(ctx context.Context, clientSecret, paymentMethodID string, form domain.ShippingContactForm) (*ConfirmResult, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
		ReturnURL:     stripe.String(c.returnURL),
		ReceiptEmail:  stripe.String(form.Email),
		Shipping: &stripe.ShippingDetailsParams{
			Name:  stripe.String(form.FullName),
			Phone: stripe.String(form.Phone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(form.AddressLine1),
				Line2:      stripe.String(form.AddressLine2),
				City:       stripe.String(form.City),
				PostalCode: stripe.String(form.PostalCode),
				Country:    stripe.String(form.Country),
			},
		},
	}
	params.Context = ctx

	pi, err := paymentintent.Confirm(intentIDFromClientSecret(clientSecret), params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			msg := stripeErr.Msg
			if msg == "" {
				msg = "Your payment could not be processed"
			}
			return &ConfirmResult{Status: ConfirmFailed, Message: msg}, nil
		}
		return nil, err
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return &ConfirmResult{Status: ConfirmSucceeded}, nil
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return &ConfirmResult{Status: ConfirmRequiresAction}, nil
	default:
		return &ConfirmResult{Status: ConfirmFailed, Message: "Your payment could not be processed"}, nil
	}
}

// client secrets look like "pi_123_secret_456"; the confirm call wants the
// bare intent id.
func intentIDFromClientSecret(clientSecret string) string {
	if i := strings.Index(clientSecret, "_secret"); i > 0 {
		return clientSecret[:i]
	}
	return clientSecret
}

package payment

import (
	"context"

	"github.com/plagued/storefront/internal/domain"
)

type ConfirmStatus string

const (
	// ConfirmSucceeded means the payment completed without further steps.
	ConfirmSucceeded ConfirmStatus = "SUCCEEDED"
	// ConfirmRequiresAction means the provider needs further customer
	// interaction (3-D Secure, redirect methods) and takes over navigation.
	ConfirmRequiresAction ConfirmStatus = "REQUIRES_ACTION"
	// ConfirmFailed is a provider-reported decline or error; Message holds
	// the human-readable reason for the banner.
	ConfirmFailed ConfirmStatus = "FAILED"
)

type ConfirmResult struct {
	Status  ConfirmStatus
	Message string
}

// Confirmer drives the external payment confirmation. The shipping and
// contact fields travel with the payment record. A non-nil error is a
// transport-level failure, not a decline; declines come back as a result
// with ConfirmFailed.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret, paymentMethodID string, form domain.ShippingContactForm) (*ConfirmResult, error)
}

package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/plagued/storefront/internal/api"
	"github.com/plagued/storefront/internal/domain"
)

// ErrInvalidCode is the generic rejection shown when the backend gives no
// detail message.
var ErrInvalidCode = errors.New("Invalid discount code")

// RejectionError carries the backend's reason for refusing a code. It is
// surfaced inline next to the discount input and touches no other state.
type RejectionError struct {
	Detail string
}

func (e *RejectionError) Error() string { return e.Detail }

// Validator checks a promo code against the backend.
type Validator interface {
	ValidateDiscount(ctx context.Context, code string, items []domain.CartLine) (*api.DiscountInfo, error)
}

// IntentRefresher recreates the payment intent; the amount on an intent is
// fixed at creation, so a discount change always means a new intent.
type IntentRefresher interface {
	CreateOrRefresh(ctx context.Context, lines []domain.CartLine, discountCode *string) (*domain.PaymentIntentSnapshot, error)
}

// Applier owns the zero-or-one active discount application and keeps the
// payment intent consistent with it. Apply and Remove are the single
// orchestrating operations; nothing else refreshes the intent on discount
// changes.
type Applier struct {
	mu        sync.Mutex
	validator Validator
	intents   IntentRefresher
	current   *domain.DiscountApplication
}

func NewApplier(validator Validator, intents IntentRefresher) *Applier {
	return &Applier{validator: validator, intents: intents}
}

// Apply validates the code against the current cart and, on acceptance,
// recreates the payment intent with the code applied. On rejection the
// prior discount state is left untouched and the backend's message (or the
// generic one) is returned as a RejectionError.
func (a *Applier) Apply(ctx context.Context, code string, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &RejectionError{Detail: ErrInvalidCode.Error()}
	}

	info, err := a.validator.ValidateDiscount(ctx, code, lines)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			detail := statusErr.Detail
			if detail == "" {
				detail = ErrInvalidCode.Error()
			}
			return nil, &RejectionError{Detail: detail}
		}
		return nil, fmt.Errorf("validate discount: %w", err)
	}

	snap, err := a.intents.CreateOrRefresh(ctx, lines, &code)
	if err != nil {
		// the intent no longer matches any stored application
		return nil, err
	}

	a.mu.Lock()
	a.current = &domain.DiscountApplication{
		Code:        code,
		Amount:      info.DiscountAmount,
		Fingerprint: domain.Fingerprint(lines),
	}
	a.mu.Unlock()
	return snap, nil
}

// Remove clears the application and recreates the intent with no code.
func (a *Applier) Remove(ctx context.Context, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, error) {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()

	return a.intents.CreateOrRefresh(ctx, lines, nil)
}

// InvalidateIfStale drops an application whose fingerprint no longer
// matches the given lines and recreates the intent without the code. The
// second return reports whether an invalidation happened.
func (a *Applier) InvalidateIfStale(ctx context.Context, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, bool, error) {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()

	if current == nil || current.Fingerprint == domain.Fingerprint(lines) {
		return nil, false, nil
	}

	snap, err := a.Remove(ctx, lines)
	return snap, true, err
}

// Current returns the active application, or nil.
func (a *Applier) Current() *domain.DiscountApplication {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Clear forgets the application without touching the intent, for checkout
// completion.
func (a *Applier) Clear() {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}

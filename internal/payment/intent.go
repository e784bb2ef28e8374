package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/plagued/storefront/internal/domain"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to check out")

// IntentCreator is the backend operation producing a payment intent for the
// given lines and optional discount code.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, items []domain.CartLine, discountCode *string) (*domain.PaymentIntentSnapshot, error)
}

// IntentManager keeps the single backend-issued payment intent in sync with
// cart contents and discount state. The intent's amount is fixed at creation
// time, so any discount change means a full recreate, never a mutation.
//
// CreateOrRefresh runs on checkout entry and on discount apply/remove only.
// Shipping address never affects the amount in this design, so form input
// must not trigger refreshes.
type IntentManager struct {
	mu       sync.Mutex
	backend  IntentCreator
	snapshot *domain.PaymentIntentSnapshot
}

func NewIntentManager(backend IntentCreator) *IntentManager {
	return &IntentManager{backend: backend}
}

// CreateOrRefresh replaces the held snapshot wholesale. An empty cart is
// refused before any request is issued; callers redirect to the catalog.
// On failure the previous snapshot is kept and the checkout view must show
// a recoverable error state instead of a payment form.
func (m *IntentManager) CreateOrRefresh(ctx context.Context, lines []domain.CartLine, discountCode *string) (*domain.PaymentIntentSnapshot, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	snap, err := m.backend.CreatePaymentIntent(ctx, lines, discountCode)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
	return snap, nil
}

// Snapshot returns the current intent snapshot, or nil before the first
// successful CreateOrRefresh.
func (m *IntentManager) Snapshot() *domain.PaymentIntentSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Reset drops the held snapshot, for checkout completion or abandonment.
func (m *IntentManager) Reset() {
	m.mu.Lock()
	m.snapshot = nil
	m.mu.Unlock()
}

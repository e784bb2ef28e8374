package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plagued/storefront/internal/domain"
	"github.com/plagued/storefront/internal/payment"
	"github.com/plagued/storefront/internal/stock"
)

const (
	catalogRoute      = "/merch"
	confirmationRoute = "/checkout/success"
)

var (
	ErrSubmissionInFlight  = errors.New("a submission is already in flight")
	ErrCheckoutComplete    = errors.New("checkout already completed")
	ErrValidationFailed    = errors.New("form validation failed")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrDiscountInvalidated = errors.New("discount invalidated by cart change")
	ErrNotInitialized      = errors.New("checkout is not initialized")
	ErrIllegalTransition   = errors.New("illegal checkout status transition")
)

const (
	bannerValidation     = "Please correct the highlighted fields"
	bannerInit           = "Failed to initialize checkout. Please try again."
	bannerNotReady       = "Checkout is not ready. Please return to the shop and try again."
	bannerUnexpected     = "An unexpected error occurred."
	bannerDeclineGeneric = "Your payment could not be processed"
	bannerDiscountGone   = "Your discount was removed because the cart changed. Review the new total and try again."
)

// Navigator performs view navigation on behalf of the controller.
type Navigator interface {
	Go(route string)
}

// Cart is the slice of the cart store the controller needs.
type Cart interface {
	Lines() []domain.CartLine
	ClearCart(ctx context.Context)
}

type StockChecker interface {
	Revalidate(ctx context.Context, lines []domain.CartLine) error
}

// DiscountState is the applier's view used at submit time.
type DiscountState interface {
	Current() *domain.DiscountApplication
	InvalidateIfStale(ctx context.Context, lines []domain.CartLine) (*domain.PaymentIntentSnapshot, bool, error)
	Clear()
}

// IntentSource holds the live payment intent for this checkout.
type IntentSource interface {
	CreateOrRefresh(ctx context.Context, lines []domain.CartLine, discountCode *string) (*domain.PaymentIntentSnapshot, error)
	Snapshot() *domain.PaymentIntentSnapshot
}

// CompletedOrder is handed to the recorder after a successful payment.
type CompletedOrder struct {
	CheckoutID  string
	Email       string
	Name        string
	Lines       []domain.CartLine
	Snapshot    domain.PaymentIntentSnapshot
	CompletedAt time.Time
}

// OrderRecorder journals completed checkouts. Failures after a successful
// payment are logged, never surfaced to the customer.
type OrderRecorder interface {
	RecordCompletedOrder(ctx context.Context, order CompletedOrder) error
}

// Controller collects and validates the shipping form, gates submission on
// live stock, and drives payment confirmation to a terminal outcome.
type Controller struct {
	mu          sync.Mutex
	status      Status
	banner      string
	fieldErrors domain.FieldErrors

	cart      Cart
	stock     StockChecker
	discounts DiscountState
	intents   IntentSource
	confirmer payment.Confirmer
	recorder  OrderRecorder
	nav       Navigator
}

func NewController(
	cart Cart,
	stockChecker StockChecker,
	discounts DiscountState,
	intents IntentSource,
	confirmer payment.Confirmer,
	recorder OrderRecorder,
	nav Navigator,
) *Controller {
	return &Controller{
		status:    StatusIdle,
		cart:      cart,
		stock:     stockChecker,
		discounts: discounts,
		intents:   intents,
		confirmer: confirmer,
		recorder:  recorder,
		nav:       nav,
	}
}

// Begin enters the checkout view: it refuses an empty cart (redirecting to
// the catalog before any intent request is issued) and otherwise fetches a
// fresh payment intent for the current cart and discount state.
func (c *Controller) Begin(ctx context.Context) (*domain.PaymentIntentSnapshot, error) {
	c.mu.Lock()
	if c.status == StatusSucceeded {
		// previous checkout finished; a new one starts clean
		c.status = StatusIdle
	}
	if c.status != StatusIdle {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	c.banner = ""
	c.fieldErrors = nil
	c.mu.Unlock()

	lines := c.cart.Lines()
	if len(lines) == 0 {
		c.nav.Go(catalogRoute)
		return nil, payment.ErrEmptyCart
	}

	var code *string
	if c.discounts != nil {
		if current := c.discounts.Current(); current != nil {
			code = &current.Code
		}
	}

	snap, err := c.intents.CreateOrRefresh(ctx, lines, code)
	if err != nil {
		c.setBanner(bannerInit)
		return nil, fmt.Errorf("initialize checkout: %w", err)
	}
	return snap, nil
}

// Submit runs the full submission pipeline. The form is never stored here;
// on any failure the caller keeps its field values and may resubmit.
func (c *Controller) Submit(ctx context.Context, form domain.ShippingContactForm, paymentMethodID string) error {
	c.mu.Lock()
	if c.status == StatusSucceeded {
		c.mu.Unlock()
		return ErrCheckoutComplete
	}
	if c.status != StatusIdle {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.status = StatusValidating
	c.banner = ""
	c.fieldErrors = nil
	c.mu.Unlock()

	// local validation: no network on failure
	if fieldErrs := form.Validate(); fieldErrs != nil {
		c.fail(fieldErrs, bannerValidation)
		return ErrValidationFailed
	}

	lines := c.cart.Lines()
	if len(lines) == 0 {
		c.fail(nil, "")
		c.nav.Go(catalogRoute)
		return payment.ErrEmptyCart
	}

	// a discount computed against different cart contents must not survive
	// to payment; drop it and make the user look at the new total
	if c.discounts != nil {
		_, invalidated, err := c.discounts.InvalidateIfStale(ctx, lines)
		if err != nil {
			c.fail(nil, bannerInit)
			return err
		}
		if invalidated {
			c.fail(nil, bannerDiscountGone)
			return ErrDiscountInvalidated
		}
	}

	if err := c.transitionTo(StatusRevalidatingStock); err != nil {
		return err
	}
	if err := c.stock.Revalidate(ctx, lines); err != nil {
		c.fail(nil, stockBanner(err))
		return err
	}

	snap := c.intents.Snapshot()
	if snap == nil {
		c.fail(nil, bannerNotReady)
		return ErrNotInitialized
	}

	if err := c.transitionTo(StatusConfirming); err != nil {
		return err
	}
	result, err := c.confirmer.Confirm(ctx, snap.ClientSecret, paymentMethodID, form)
	if err != nil {
		c.fail(nil, bannerUnexpected)
		return fmt.Errorf("confirm payment: %w", err)
	}

	switch result.Status {
	case payment.ConfirmSucceeded:
		c.completeSuccess(ctx, lines, form, snap)
		return nil
	case payment.ConfirmRequiresAction:
		// the provider has taken over navigation; no forced transition
		return nil
	default:
		msg := result.Message
		if msg == "" {
			msg = bannerDeclineGeneric
		}
		c.fail(nil, msg)
		return fmt.Errorf("%w: %s", ErrPaymentDeclined, msg)
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

func (c *Controller) FieldErrors() domain.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldErrors
}

// Reset returns the controller to Idle, abandoning any terminal state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusIdle
	c.banner = ""
	c.fieldErrors = nil
}

func (c *Controller) completeSuccess(ctx context.Context, lines []domain.CartLine, form domain.ShippingContactForm, snap *domain.PaymentIntentSnapshot) {
	c.cart.ClearCart(ctx)
	if c.discounts != nil {
		c.discounts.Clear()
	}

	if c.recorder != nil {
		order := CompletedOrder{
			CheckoutID:  uuid.NewString(),
			Email:       form.Email,
			Name:        form.FullName,
			Lines:       lines,
			Snapshot:    *snap,
			CompletedAt: time.Now(),
		}
		if err := c.recorder.RecordCompletedOrder(ctx, order); err != nil {
			log.Printf("failed to record completed order: %v", err)
		}
	}

	c.mu.Lock()
	c.status = StatusSucceeded
	c.mu.Unlock()

	c.nav.Go(confirmationRoute)
}

func (c *Controller) transitionTo(to Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransitionTo(c.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.status, to)
	}
	c.status = to
	return nil
}

func (c *Controller) fail(fieldErrs domain.FieldErrors, banner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusIdle
	c.fieldErrors = fieldErrs
	c.banner = banner
}

func (c *Controller) setBanner(banner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = banner
}

func stockBanner(err error) string {
	if errors.Is(err, stock.ErrCatalogFetch) {
		return stock.ErrCatalogFetch.Error()
	}
	return err.Error()
}

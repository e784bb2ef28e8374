package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/plagued/storefront/internal/domain"
)

var ErrMalformedResponse = errors.New("malformed backend response")

// StatusError is a non-2xx backend reply, carrying the backend's detail
// message when one was provided.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

type httpResult struct {
	status int
	body   []byte
}

// Client is the typed REST client for the band backend. Every call carries
// an explicit timeout, and all calls go through a shared circuit breaker so
// a dead backend fails fast instead of hanging each checkout.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*httpResult]
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[*httpResult](gobreaker.Settings{
			Name:        "band-backend",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Merch fetches the authoritative catalog with per-size availability.
func (c *Client) Merch(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/merch", nil, &products); err != nil {
		return nil, err
	}

	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("%w: merch item missing id or name", ErrMalformedResponse)
		}
	}
	return products, nil
}

// ValidateDiscount checks a promo code against the current cart contents.
// The code is sent as given; normalization is the caller's concern.
func (c *Client) ValidateDiscount(ctx context.Context, code string, items []domain.CartLine) (*DiscountInfo, error) {
	req := ValidateDiscountRequest{Code: code, Items: items}

	var info DiscountInfo
	if err := c.do(ctx, http.MethodPost, "/api/validate-discount", req, &info); err != nil {
		return nil, err
	}

	if info.Code == "" {
		return nil, fmt.Errorf("%w: discount response missing code", ErrMalformedResponse)
	}
	return &info, nil
}

// CreatePaymentIntent asks the backend for a fresh payment intent covering
// the given lines and optional discount code. Amounts in the returned
// snapshot are authoritative.
func (c *Client) CreatePaymentIntent(ctx context.Context, items []domain.CartLine, discountCode *string) (*domain.PaymentIntentSnapshot, error) {
	req := CreatePaymentIntentRequest{Items: items, DiscountCode: discountCode}

	var resp paymentIntentResponse
	if err := c.do(ctx, http.MethodPost, "/api/create-payment-intent", req, &resp); err != nil {
		return nil, err
	}

	if resp.ClientSecret == "" {
		return nil, fmt.Errorf("%w: payment intent response missing client secret", ErrMalformedResponse)
	}

	return &domain.PaymentIntentSnapshot{
		ClientSecret:   resp.ClientSecret,
		Subtotal:       resp.Subtotal,
		ShippingCost:   resp.ShippingCost,
		ShippingMethod: resp.ShippingMethod,
		DiscountAmount: resp.DiscountAmount,
		Total:          resp.TotalAmount,
	}, nil
}

// Config fetches the storefront feature flags.
func (c *Client) Config(ctx context.Context) (*ConfigResponse, error) {
	var cfg ConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	result, err := c.breaker.Execute(func() (*httpResult, error) {
		resp, err2 := c.http.Do(req)
		if err2 != nil {
			return nil, fmt.Errorf("backend request failed: %w", err2)
		}
		defer resp.Body.Close()

		data, err2 := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err2 != nil {
			return nil, fmt.Errorf("read backend response: %w", err2)
		}

		// 5xx trips the breaker; 4xx is a valid backend answer
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &StatusError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
		}
		return &httpResult{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return err
	}

	if result.status < http.StatusOK || result.status >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: result.status, Detail: errorDetail(result.body)}
	}

	if respBody != nil {
		if err := json.Unmarshal(result.body, respBody); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

func errorDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	return er.Detail
}

package stock

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/plagued/storefront/internal/domain"
)

// ErrCatalogFetch wraps a failed catalog fetch. It halts the submission the
// same way a stock conflict does, but carries no product detail.
var ErrCatalogFetch = errors.New("unable to verify stock, please try again")

type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("%s is no longer available", e.ProductName)
}

type VariantUnavailableError struct {
	ProductName string
	Size        string
}

func (e *VariantUnavailableError) Error() string {
	return fmt.Sprintf("%s (%s) is no longer available", e.ProductName, e.Size)
}

type InsufficientStockError struct {
	ProductName string
	Size        string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d of %s (%s) left in stock", e.Available, e.ProductName, e.Size)
}

// Catalog fetches the authoritative product list.
type Catalog interface {
	Merch(ctx context.Context) ([]domain.Product, error)
}

// Revalidator checks cart lines against live availability just before
// payment. Advisory-then-authoritative: it cuts down doomed payments, but
// the backend still enforces stock on order creation.
type Revalidator struct {
	catalog Catalog
	sfg     singleflight.Group // collapses concurrent catalog fetches
}

func NewRevalidator(catalog Catalog) *Revalidator {
	return &Revalidator{catalog: catalog}
}

// Revalidate returns nil when every line can still be fulfilled. The first
// conflict found is returned; the cart is never mutated and the fetch is not
// retried.
func (r *Revalidator) Revalidate(ctx context.Context, lines []domain.CartLine) error {
	v, err, _ := r.sfg.Do("merch", func() (interface{}, error) {
		return r.catalog.Merch(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogFetch, err)
	}
	products := v.([]domain.Product)

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return &ProductUnavailableError{ProductName: line.Name}
		}

		// non-sized goods carry no per-variant stock; presence is enough
		if line.Size == "" {
			continue
		}

		size, ok := product.FindSize(line.Size)
		if !ok || !size.Available {
			return &VariantUnavailableError{ProductName: product.Name, Size: line.Size}
		}
		if size.Stock < line.Quantity {
			return &InsufficientStockError{ProductName: product.Name, Size: line.Size, Available: size.Stock}
		}
	}
	return nil
}

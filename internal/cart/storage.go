package cart

import (
	"context"
	"errors"

	"github.com/plagued/storefront/internal/domain"
)

// StorageKey is the fixed namespace key the cart is persisted under.
const StorageKey = "plagued_cart"

// schemaVersion is embedded in the persisted payload. A mismatch on load is
// discarded rather than risking a misparse of an old cart.
const schemaVersion = 1

var ErrNoSavedCart = errors.New("no saved cart")

// Storage persists the full cart line sequence under StorageKey.
type Storage interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	Save(ctx context.Context, lines []domain.CartLine) error
}

type persistedCart struct {
	Version int               `json:"version"`
	Items   []domain.CartLine `json:"items"`
}

package cart

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/plagued/storefront/internal/domain"
)

const checkoutRoute = "/checkout"

// Store is the single source of truth for cart contents and panel
// visibility. No other component writes to the cart directly; views get a
// *Store injected and go through these operations. Every line mutation is
// persisted synchronously through Storage under StorageKey.
type Store struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	open     bool
	hydrated bool

	storage  Storage
	navigate func(route string)
}

// NewStore builds an empty store. navigate is invoked by Checkout with the
// checkout route; pass nil when the caller handles navigation itself.
func NewStore(storage Storage, navigate func(route string)) *Store {
	if navigate == nil {
		navigate = func(string) {}
	}
	return &Store{storage: storage, navigate: navigate}
}

// Hydrate loads the persisted cart once. A missing or unreadable saved cart
// is logged and ignored; the store stays empty.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return
	}
	s.hydrated = true

	lines, err := s.storage.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSavedCart) {
			log.Printf("failed to load cart from storage: %v", err)
		}
		return
	}
	s.lines = lines
}

// AddItem merges with an existing line for the same (product, size) by
// summing quantities, otherwise appends. Always succeeds.
func (s *Store) AddItem(ctx context.Context, line domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Key() == line.Key() {
			s.lines[i].Quantity += line.Quantity
			s.persist(ctx)
			return
		}
	}
	s.lines = append(s.lines, line)
	s.persist(ctx)
}

// RemoveItem deletes all lines matching the key. No-op if absent.
func (s *Store) RemoveItem(ctx context.Context, productID, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LineKey{ProductID: productID, Size: size}
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.Key() != key {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	s.persist(ctx)
}

// UpdateQuantity sets the matching line's quantity. A quantity of zero or
// below removes the line. No-op if the key is absent.
func (s *Store) UpdateQuantity(ctx context.Context, productID, size string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LineKey{ProductID: productID, Size: size}
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.Key() == key {
			if quantity <= 0 {
				continue
			}
			l.Quantity = quantity
		}
		kept = append(kept, l)
	}
	s.lines = kept
	s.persist(ctx)
}

// ClearCart empties the line sequence. Panel visibility is untouched.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persist(ctx)
}

func (s *Store) ToggleCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
}

func (s *Store) OpenCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
}

func (s *Store) CloseCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Checkout closes the panel and navigates to the checkout view. Cart
// contents are not touched.
func (s *Store) Checkout() {
	s.mu.Lock()
	s.open = false
	navigate := s.navigate
	s.mu.Unlock()

	navigate(checkoutRoute)
}

// Lines returns a copy of the line sequence in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ItemCount(s.lines)
}

func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalPrice(s.lines)
}

// persist writes the current line sequence. Mutations never fail on a
// storage error; it is logged and the in-memory state stands.
func (s *Store) persist(ctx context.Context) {
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	if err := s.storage.Save(ctx, lines); err != nil {
		log.Printf("failed to persist cart: %v", err)
	}
}

package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plagued/storefront/internal/domain"
)

type mockStorage struct {
	m         sync.Mutex
	saved     []domain.CartLine
	saveCalls int
	loadLines []domain.CartLine
	loadErr   error
	saveErr   error
}

func (m *mockStorage) Load(context.Context) ([]domain.CartLine, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loadLines, nil
}

func (m *mockStorage) Save(_ context.Context, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveCalls++
	m.saved = lines
	return m.saveErr
}

func teeLine(size string, quantity int) domain.CartLine {
	return domain.CartLine{
		ProductID: "rotting-dominions-tee",
		Name:      "Rotting Dominions T-Shirt",
		Price:     2000,
		Quantity:  quantity,
		Size:      size,
	}
}

func TestAddItem_MergesSameProductAndSize(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 1))
	store.AddItem(ctx, teeLine("M", 2))
	store.AddItem(ctx, teeLine("M", 3))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 6, lines[0].Quantity)
}

func TestAddItem_DifferentSizesStayDistinct(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 1))
	store.AddItem(ctx, teeLine("L", 1))

	lines := store.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "M", lines[0].Size)
	assert.Equal(t, "L", lines[1].Size)
}

func TestUpdateQuantity_ZeroOrBelowRemovesLine(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 3))
	store.UpdateQuantity(ctx, "rotting-dominions-tee", "M", 0)
	assert.Empty(t, store.Lines())

	store.AddItem(ctx, teeLine("M", 3))
	store.UpdateQuantity(ctx, "rotting-dominions-tee", "M", -2)
	assert.Empty(t, store.Lines())
}

func TestUpdateQuantity_SetsQuantity(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 3))
	store.UpdateQuantity(ctx, "rotting-dominions-tee", "M", 1)

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestUpdateQuantity_AbsentKeyIsNoOp(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 2))
	store.UpdateQuantity(ctx, "logo-tee-green", "M", 5)

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 2))
	store.AddItem(ctx, teeLine("L", 1))

	store.RemoveItem(ctx, "rotting-dominions-tee", "M")

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "L", lines[0].Size)

	// absent key is a no-op
	store.RemoveItem(ctx, "rotting-dominions-tee", "M")
	assert.Len(t, store.Lines(), 1)
}

func TestTotals_AlwaysRecomputed(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 2))
	store.AddItem(ctx, domain.CartLine{ProductID: "logo-tee-green", Name: "Logo Tee", Price: 1800, Quantity: 1})

	assert.Equal(t, 3, store.ItemCount())
	assert.Equal(t, int64(2*2000+1800), store.TotalPrice())

	store.UpdateQuantity(ctx, "rotting-dominions-tee", "M", 1)
	assert.Equal(t, 2, store.ItemCount())
	assert.Equal(t, int64(2000+1800), store.TotalPrice())
}

func TestClearCart_LeavesPanelState(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 2))
	store.OpenCart()
	store.ClearCart(ctx)

	assert.Empty(t, store.Lines())
	assert.True(t, store.IsOpen())
}

func TestPanelVisibility(t *testing.T) {
	store := NewStore(&mockStorage{}, nil)

	assert.False(t, store.IsOpen())
	store.ToggleCart()
	assert.True(t, store.IsOpen())
	store.ToggleCart()
	assert.False(t, store.IsOpen())
	store.OpenCart()
	assert.True(t, store.IsOpen())
	store.CloseCart()
	assert.False(t, store.IsOpen())
}

func TestCheckout_ClosesPanelAndNavigates(t *testing.T) {
	var routes []string
	store := NewStore(&mockStorage{}, func(route string) { routes = append(routes, route) })
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 1))
	store.OpenCart()
	store.Checkout()

	assert.False(t, store.IsOpen())
	assert.Equal(t, []string{"/checkout"}, routes)
	assert.Len(t, store.Lines(), 1, "checkout must not mutate cart contents")
}

func TestEveryMutationPersists(t *testing.T) {
	storage := &mockStorage{}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 1))
	store.UpdateQuantity(ctx, "rotting-dominions-tee", "M", 4)
	store.RemoveItem(ctx, "rotting-dominions-tee", "M")
	store.ClearCart(ctx)

	assert.Equal(t, 4, storage.saveCalls)
	assert.Empty(t, storage.saved)
}

func TestPersistFailure_DoesNotLoseState(t *testing.T) {
	storage := &mockStorage{saveErr: errors.New("storage down")}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.AddItem(ctx, teeLine("M", 1))

	assert.Len(t, store.Lines(), 1)
}

func TestHydrate_LoadsSavedCartOnce(t *testing.T) {
	storage := &mockStorage{loadLines: []domain.CartLine{teeLine("M", 2)}}
	store := NewStore(storage, nil)
	ctx := context.Background()

	store.Hydrate(ctx)
	require.Len(t, store.Lines(), 1)

	// second hydrate does not reload
	storage.m.Lock()
	storage.loadLines = []domain.CartLine{teeLine("M", 2), teeLine("L", 1)}
	storage.m.Unlock()
	store.Hydrate(ctx)
	assert.Len(t, store.Lines(), 1)
}

func TestHydrate_ReadFailureLeavesCartEmpty(t *testing.T) {
	storage := &mockStorage{loadErr: errors.New("corrupt payload")}
	store := NewStore(storage, nil)

	store.Hydrate(context.Background())

	assert.Empty(t, store.Lines())
}

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plagued/storefront/internal/cart"
	"github.com/plagued/storefront/internal/domain"
)

type inMemStorage struct {
	lines []domain.CartLine
}

func (s *inMemStorage) Load(context.Context) ([]domain.CartLine, error) {
	if s.lines == nil {
		return nil, cart.ErrNoSavedCart
	}
	return s.lines, nil
}

func (s *inMemStorage) Save(_ context.Context, lines []domain.CartLine) error {
	s.lines = lines
	return nil
}

func newCartRouter(store *cart.Store) http.Handler {
	h := NewCartHandler(store, 5*time.Second)
	r := chi.NewRouter()
	r.Get("/", h.GetCart)
	r.Delete("/", h.ClearCart)
	r.Post("/items", h.AddItem)
	r.Put("/items/{product_id}", h.UpdateQuantity)
	r.Delete("/items/{product_id}", h.RemoveItem)
	r.Post("/toggle", h.ToggleCart)
	r.Post("/checkout", h.Checkout)
	return r
}

func addItemBody(t *testing.T, dto AddItemRequestDTO) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(dto)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Empty(t *testing.T) {
	router := newCartRouter(cart.NewStore(&inMemStorage{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.ItemCount)
	assert.Equal(t, int64(0), resp.TotalPrice)
}

func TestAddItem_Success(t *testing.T) {
	router := newCartRouter(cart.NewStore(&inMemStorage{}, nil))

	body := addItemBody(t, AddItemRequestDTO{
		ProductID: "rotting-dominions-tee", Name: "Tee", Price: 2500, Size: "M", Quantity: 2,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/items", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.ItemCount)
	assert.Equal(t, int64(5000), resp.TotalPrice)
}

func TestAddItem_MergesSameProductAndSize(t *testing.T) {
	router := newCartRouter(cart.NewStore(&inMemStorage{}, nil))

	dto := AddItemRequestDTO{ProductID: "rotting-dominions-tee", Name: "Tee", Price: 2500, Size: "M", Quantity: 1}
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/items", addItemBody(t, dto)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		dto  AddItemRequestDTO
		code string
	}{
		{"missing id", AddItemRequestDTO{Name: "Tee", Price: 2500, Quantity: 1}, "invalid_product_id"},
		{"zero quantity", AddItemRequestDTO{ProductID: "tee", Price: 2500, Quantity: 0}, "invalid_quantity"},
		{"excessive quantity", AddItemRequestDTO{ProductID: "tee", Price: 2500, Quantity: 100}, "invalid_quantity"},
		{"negative price", AddItemRequestDTO{ProductID: "tee", Price: -1, Quantity: 1}, "invalid_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCartRouter(cart.NewStore(&inMemStorage{}, nil))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("POST", "/items", addItemBody(t, tt.dto)))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestAddItem_InvalidJSON(t *testing.T) {
	router := newCartRouter(cart.NewStore(&inMemStorage{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/items", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	store := cart.NewStore(&inMemStorage{}, nil)
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 2, Size: "M"})
	router := newCartRouter(store)

	body := bytes.NewReader([]byte(`{"quantity":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/items/tee?size=M", body))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Items)
}

func TestUpdateQuantity_SetsNewQuantity(t *testing.T) {
	store := cart.NewStore(&inMemStorage{}, nil)
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 2, Size: "M"})
	router := newCartRouter(store)

	body := bytes.NewReader([]byte(`{"quantity":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/items/tee?size=M", body))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
}

func TestRemoveItem_TargetsSizeVariant(t *testing.T) {
	store := cart.NewStore(&inMemStorage{}, nil)
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 1, Size: "M"})
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 1, Size: "L"})
	router := newCartRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/items/tee?size=M", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "L", resp.Items[0].Size)
}

func TestClearCart(t *testing.T) {
	store := cart.NewStore(&inMemStorage{}, nil)
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 1})
	router := newCartRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCheckout_ClosesPanelAndRedirects(t *testing.T) {
	store := cart.NewStore(&inMemStorage{}, nil)
	store.AddItem(context.Background(), domain.CartLine{ProductID: "tee", Name: "Tee", Price: 2500, Quantity: 1})
	store.OpenCart()
	router := newCartRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/checkout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "/checkout", resp["redirect"])
	assert.False(t, store.IsOpen())
	assert.Len(t, store.Lines(), 1, "checkout must not touch cart contents")
}

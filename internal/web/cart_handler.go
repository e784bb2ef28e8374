package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plagued/storefront/internal/cart"
	"github.com/plagued/storefront/internal/domain"
)

type CartHandler struct {
	store   *cart.Store
	timeout time.Duration
}

func NewCartHandler(store *cart.Store, timeout time.Duration) *CartHandler {
	return &CartHandler{
		store:   store,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Size      string `json:"size,omitempty"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items      []domain.CartLine `json:"items"`
	ItemCount  int               `json:"item_count"`
	TotalPrice int64             `json:"total_price"`
	IsOpen     bool              `json:"is_open"`
}

func (h *CartHandler) cartResponse() CartResponseDTO {
	return CartResponseDTO{
		Items:      h.store.Lines(),
		ItemCount:  h.store.ItemCount(),
		TotalPrice: h.store.TotalPrice(),
		IsOpen:     h.store.IsOpen(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Parse request body
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Validate request
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	h.store.AddItem(ctx, domain.CartLine{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Size:      req.Size,
		Image:     req.Image,
		Quantity:  req.Quantity,
	})

	respondJSON(w, http.StatusCreated, h.cartResponse())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must not be empty")
		return
	}
	size := r.URL.Query().Get("size")

	// Parse request body
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	// quantity zero or below removes the line
	h.store.UpdateQuantity(ctx, productID, size, req.Quantity)

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must not be empty")
		return
	}
	size := r.URL.Query().Get("size")

	h.store.RemoveItem(ctx, productID, size)

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.store.ClearCart(ctx)

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	h.store.ToggleCart()
	respondJSON(w, http.StatusOK, h.cartResponse())
}

// Checkout closes the panel and reports the route the client should render.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.store.Checkout()
	respondJSON(w, http.StatusOK, map[string]string{"redirect": "/checkout"})
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CartLine is one entry in the cart. Prices are in pence.
type CartLine struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Image     string `json:"image,omitempty"`
}

// LineKey identifies a cart line. Two lines with the same product but
// different sizes are distinct.
type LineKey struct {
	ProductID string
	Size      string
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size}
}

// ItemCount sums quantities over all lines. Always recomputed, never cached.
func ItemCount(lines []CartLine) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// TotalPrice sums price*quantity in pence over all lines.
func TotalPrice(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// Fingerprint is a stable digest of the cart contents. A discount
// application remembers the fingerprint it was computed against so that
// later cart mutations invalidate it.
func Fingerprint(lines []CartLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s|%s|%d|%d;", l.ProductID, l.Size, l.Quantity, l.Price)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

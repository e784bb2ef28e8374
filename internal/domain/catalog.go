package domain

// ProductSize is the availability of one size variant as reported by the
// backend catalog.
type ProductSize struct {
	Size      string `json:"size"`
	Available bool   `json:"available"`
	Stock     int    `json:"stock"`
}

type Product struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Price int64         `json:"price"`
	Image string        `json:"image,omitempty"`
	Sizes []ProductSize `json:"sizes,omitempty"`
}

// FindSize returns the matching size variant, if any.
func (p Product) FindSize(size string) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s, true
		}
	}
	return ProductSize{}, false
}

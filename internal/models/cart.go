package models

// CartEntry is one (product, size) line of a cart. Name, price and image are
// copied from the catalog when the entry is first added.
type CartEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Image        string  `json:"image"`
	SelectedSize string  `json:"selectedSize"`
	Quantity     int     `json:"quantity"`
}

func (e CartEntry) Matches(id, size string) bool {
	return e.ID == id && e.SelectedSize == size
}

// Package catalog serves the static product list. Prices read from here are
// copied into cart entries when a product is added.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed products.json
var embeddedProducts []byte

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Subtitle      string   `json:"subtitle"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice"`
	Image         string   `json:"image"`
	Category      string   `json:"category"`
	Sizes         []string `json:"sizes"`
	Colors        []string `json:"colors"`
	IsNew         bool     `json:"isNew"`
	Featured      bool     `json:"featured"`
	DateAdded     string   `json:"dateAdded"`
	Details       []string `json:"details"`
}

func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

type Catalog struct {
	products []Product
	byID     map[string]Product
}

// Load reads the catalog from path, or from the embedded list when path is empty.
func Load(path string) (*Catalog, error) {
	data := embeddedProducts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{products: products, byID: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product id %q", p.ID)
		}
		c.byID[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (c *Catalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

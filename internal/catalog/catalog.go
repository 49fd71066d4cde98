// Package catalog provides the immutable in-memory product catalog and its
// file loaders. A catalog is rebuilt wholesale on reload, never mutated.
package catalog

import (
	"fmt"

	"github.com/hyperjump/osusume/internal/models"
)

// Catalog is an ordered, read-only collection of products. Insertion order is
// source-file order and serves as the deterministic tie-break for rankings.
type Catalog struct {
	products []models.Product
	byID     map[string]int
}

// New builds a catalog from products, validating that ids are present and
// unique. The input slice is copied.
func New(products []models.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]models.Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(c.products, products)
	for i, p := range c.products {
		if p.ID == "" {
			return nil, fmt.Errorf("product at row %d has empty id", i)
		}
		if prev, ok := c.byID[p.ID]; ok {
			return nil, fmt.Errorf("duplicate product id %q (rows %d and %d)", p.ID, prev, i)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns the products in catalog order. Callers must not modify the
// returned slice.
func (c *Catalog) Products() []models.Product {
	return c.products
}

// At returns the product at position i.
func (c *Catalog) At(i int) *models.Product {
	return &c.products[i]
}

// Get returns the product with the given id.
func (c *Catalog) Get(id string) (*models.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.products[i], true
}

// IndexOf returns the catalog position of the given id.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Documents returns the vectorization text for each product, in catalog order.
func (c *Catalog) Documents() []string {
	docs := make([]string, len(c.products))
	for i := range c.products {
		docs[i] = c.products[i].Document()
	}
	return docs
}

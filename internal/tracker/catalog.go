package tracker

import (
	"errors"
	"fmt"
	"sync"

	"price-tracker/internal/model"
)

// ErrUnknownProduct is returned for a product name not in the catalog
var ErrUnknownProduct = errors.New("unknown product")

// Catalog is the mutable set of tracked products. Only thresholds and the
// names of link-file products change at runtime.
type Catalog struct {
	mu       sync.RWMutex
	products []model.Product
}

var _ NameRecorder = (*Catalog)(nil)

func NewCatalog(products []model.Product) *Catalog {
	c := &Catalog{}
	c.Add(products...)
	return c
}

// Products returns a snapshot of the catalog
func (c *Catalog) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Product, len(c.products))
	for i, p := range c.products {
		if p.Threshold != nil {
			p.Threshold = model.Float(*p.Threshold)
		}
		out[i] = p
	}
	return out
}

// Get returns the product with the given name
func (c *Catalog) Get(name string) (model.Product, bool) {
	for _, p := range c.Products() {
		if p.Name == name {
			return p, true
		}
	}
	return model.Product{}, false
}

// Add appends products whose URL is not tracked yet and returns how many
// were added
func (c *Catalog) Add(products ...model.Product) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, p := range products {
		if c.indexByURL(p.URL) >= 0 {
			continue
		}
		c.products = append(c.products, p)
		added++
	}
	return added
}

// SetThreshold replaces a product's threshold; nil clears it
func (c *Catalog) SetThreshold(name string, threshold *float64) error {
	if threshold != nil {
		if *threshold < 0 {
			return fmt.Errorf("threshold must be >= 0, got %v", *threshold)
		}
		threshold = model.Float(*threshold)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.products {
		if c.products[i].Name == name {
			c.products[i].Threshold = threshold
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownProduct, name)
}

// RecordName names a product that was added by URL only and returns the
// name it is tracked under. A page name already held by a product with a
// different URL gets the source appended, so two sites never share a series.
// Once named, a product keeps its name.
func (c *Catalog) RecordName(p model.Product, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexByURL(p.URL)
	if i >= 0 && c.products[i].Name != "" {
		return c.products[i].Name
	}

	source := string(p.Source)
	if source == "" {
		source = "link"
	}
	unique := name
	for n := 1; c.nameTaken(unique, p.URL); n++ {
		if n == 1 {
			unique = fmt.Sprintf("%s (%s)", name, source)
		} else {
			unique = fmt.Sprintf("%s (%s %d)", name, source, n)
		}
	}

	if i >= 0 {
		c.products[i].Name = unique
	}
	return unique
}

func (c *Catalog) nameTaken(name, url string) bool {
	for _, p := range c.products {
		if p.Name == name && p.URL != url {
			return true
		}
	}
	return false
}

func (c *Catalog) indexByURL(url string) int {
	for i, p := range c.products {
		if p.URL == url {
			return i
		}
	}
	return -1
}

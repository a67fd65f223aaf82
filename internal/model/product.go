package model

import (
	"fmt"
	"time"
)

// Source identifies the site whose page layout an extraction adapter understands
type Source string

const (
	SourceFlipkart Source = "flipkart"
	SourceAmazon   Source = "amazon"
)

// Product is one tracked catalog entry. Name is the unique key of its price series.
type Product struct {
	Name      string   `json:"name" yaml:"name"`
	URL       string   `json:"url" yaml:"url"`
	Source    Source   `json:"source" yaml:"source"`
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// Label returns the name used in logs for a product that may not have a configured name yet
func (p Product) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}

// Observation is one timestamped price reading for one product
type Observation struct {
	ProductName string    `json:"product_name"`
	Timestamp   time.Time `json:"timestamp"`
	Price       float64   `json:"price"`
}

// RawPrice is the unparsed price text an adapter pulled from a page.
// Fraction is only set by sources that render the fractional part in a separate node.
type RawPrice struct {
	Whole    string `json:"whole"`
	Fraction string `json:"fraction,omitempty"`
}

func (r RawPrice) String() string {
	if r.Fraction == "" {
		return r.Whole
	}
	return fmt.Sprintf("%s|%s", r.Whole, r.Fraction)
}

// Float returns a pointer to v, used for optional numeric fields
func Float(v float64) *float64 {
	return &v
}

package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"price-tracker/internal/config"
	"price-tracker/internal/model"
)

// ErrExtractionMiss means the page was fetched but the name or price
// element was not found
var ErrExtractionMiss = errors.New("extraction miss")

// Registry maps source tags to adapters and runs fetch + extract
type Registry struct {
	fetcher  Fetcher
	adapters map[model.Source]Adapter
}

// NewRegistry creates a registry with the given adapters. With no adapters
// it registers the Flipkart and Amazon adapters.
func NewRegistry(fetcher Fetcher, adapters ...Adapter) *Registry {
	if len(adapters) == 0 {
		adapters = []Adapter{NewFlipkartAdapter(), NewAmazonAdapter()}
	}
	r := &Registry{
		fetcher:  fetcher,
		adapters: make(map[model.Source]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Source()] = a
	}
	return r
}

// Lookup returns the adapter for source
func (r *Registry) Lookup(source model.Source) (Adapter, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w %q", config.ErrUnknownSource, source)
	}
	return a, nil
}

// Validate fails with a ConfigurationError for the first product whose
// source has no adapter
func (r *Registry) Validate(products []model.Product) error {
	for i, p := range products {
		if _, err := r.Lookup(p.Source); err != nil {
			return &config.ConfigurationError{
				Field: fmt.Sprintf("products[%d].source", i),
				Err:   fmt.Errorf("%s: %w", p.URL, err),
			}
		}
	}
	return nil
}

// Extract fetches the product page and runs its source adapter
func (r *Registry) Extract(ctx context.Context, p model.Product) (string, model.RawPrice, error) {
	adapter, err := r.Lookup(p.Source)
	if err != nil {
		return "", model.RawPrice{}, err
	}

	body, err := r.fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return "", model.RawPrice{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", model.RawPrice{}, fmt.Errorf("parse %s: %w", p.URL, err)
	}

	name, price, ok := adapter.Extract(doc)
	if !ok {
		return "", model.RawPrice{}, fmt.Errorf("%s %s: %w", p.Source, p.URL, ErrExtractionMiss)
	}
	return name, price, nil
}

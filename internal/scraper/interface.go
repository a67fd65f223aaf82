package scraper

import (
	"github.com/PuerkitoBio/goquery"

	"price-tracker/internal/model"
)

// Adapter extracts a product name and raw price from a parsed page.
// A missing element is reported with ok=false, never a panic.
type Adapter interface {
	Source() model.Source
	Extract(doc *goquery.Document) (name string, price model.RawPrice, ok bool)
}

// Ensure adapters implement the interface
var (
	_ Adapter = (*FlipkartAdapter)(nil)
	_ Adapter = (*AmazonAdapter)(nil)
)

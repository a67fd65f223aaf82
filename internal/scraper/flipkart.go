package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"price-tracker/internal/model"
)

// Flipkart has shipped two page layouts; the older class names come first.
var (
	flipkartNameSelectors  = []string{"span.B_NuCI", "span.VU-ZEz", "h1 span"}
	flipkartPriceSelectors = []string{"div._30jeq3._16Jk6d", "div.Nx9bqj.CxhGGd", "div.Nx9bqj"}
)

// FlipkartAdapter reads flipkart.com product pages
type FlipkartAdapter struct{}

func NewFlipkartAdapter() *FlipkartAdapter {
	return &FlipkartAdapter{}
}

func (a *FlipkartAdapter) Source() model.Source {
	return model.SourceFlipkart
}

// Extract returns the product title and the single-node price text
func (a *FlipkartAdapter) Extract(doc *goquery.Document) (string, model.RawPrice, bool) {
	name := firstText(doc, flipkartNameSelectors)
	price := firstText(doc, flipkartPriceSelectors)
	if name == "" || price == "" {
		return "", model.RawPrice{}, false
	}
	return name, model.RawPrice{Whole: price}, true
}

// firstText returns the trimmed text of the first selector that matches
// a non-empty element
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}

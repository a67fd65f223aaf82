package scraper

import (
	"github.com/PuerkitoBio/goquery"

	"price-tracker/internal/model"
)

var (
	amazonNameSelectors     = []string{"span#productTitle", "#title"}
	amazonWholeSelectors    = []string{"span.a-price-whole"}
	amazonFractionSelectors = []string{"span.a-price-fraction"}
	amazonLegacySelectors   = []string{"#priceblock_ourprice", "#priceblock_dealprice", "span.a-offscreen"}
)

// AmazonAdapter reads Amazon product pages. Amazon renders the whole and
// fractional part of a price in separate nodes.
type AmazonAdapter struct{}

func NewAmazonAdapter() *AmazonAdapter {
	return &AmazonAdapter{}
}

func (a *AmazonAdapter) Source() model.Source {
	return model.SourceAmazon
}

func (a *AmazonAdapter) Extract(doc *goquery.Document) (string, model.RawPrice, bool) {
	name := firstText(doc, amazonNameSelectors)
	if name == "" {
		return "", model.RawPrice{}, false
	}

	if whole := firstText(doc, amazonWholeSelectors); whole != "" {
		return name, model.RawPrice{
			Whole:    whole,
			Fraction: firstText(doc, amazonFractionSelectors),
		}, true
	}

	if legacy := firstText(doc, amazonLegacySelectors); legacy != "" {
		return name, model.RawPrice{Whole: legacy}, true
	}

	return "", model.RawPrice{}, false
}

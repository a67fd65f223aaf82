package analysis

import (
	"time"

	"github.com/google/uuid"

	"price-tracker/internal/model"
)

// Evaluate returns an alert when the product has a threshold and
// latestPrice is strictly below it. Equal to the threshold does not alert.
func Evaluate(product model.Product, latestPrice float64, ts time.Time) *model.Alert {
	if product.Threshold == nil || !(latestPrice < *product.Threshold) {
		return nil
	}
	return &model.Alert{
		ID:          uuid.NewString(),
		ProductName: product.Name,
		URL:         product.URL,
		Price:       latestPrice,
		Threshold:   *product.Threshold,
		Timestamp:   ts,
	}
}

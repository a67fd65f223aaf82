package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"price-tracker/internal/model"
)

// Detector classifies a new price against the single observation that
// immediately precedes it. It never looks at older history.
type Detector struct {
	history History
}

func NewDetector(history History) *Detector {
	return &Detector{history: history}
}

// Detect looks up the newest observation strictly before ts and compares.
// With a zero previous price the result is returned together with
// ErrDivisionUndefined and PercentDelta left nil.
func (d *Detector) Detect(ctx context.Context, name string, newPrice float64, ts time.Time) (model.ChangeResult, error) {
	prev, ok, err := d.history.LatestBefore(ctx, name, ts)
	if err != nil {
		return model.ChangeResult{}, fmt.Errorf("previous observation for %s: %w", name, err)
	}
	if !ok {
		return model.ChangeResult{Kind: model.ChangeFirst, NewPrice: newPrice}, nil
	}
	return Compare(prev.Price, newPrice)
}

// Compare classifies newPrice against oldPrice with exact equality
func Compare(oldPrice, newPrice float64) (model.ChangeResult, error) {
	oldD := decimal.NewFromFloat(oldPrice)
	newD := decimal.NewFromFloat(newPrice)
	diff := newD.Sub(oldD)

	result := model.ChangeResult{
		OldPrice: model.Float(oldPrice),
		NewPrice: newPrice,
		Delta:    diff.InexactFloat64(),
	}

	switch {
	case newPrice < oldPrice:
		result.Kind = model.ChangeDrop
	case newPrice > oldPrice:
		result.Kind = model.ChangeRise
	default:
		result.Kind = model.ChangeUnchanged
	}

	if oldD.IsZero() {
		return result, ErrDivisionUndefined
	}

	pct := diff.Div(oldD).Mul(decimal.NewFromInt(100)).Round(2)
	result.PercentDelta = model.Float(pct.InexactFloat64())
	return result, nil
}

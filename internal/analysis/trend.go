package analysis

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"price-tracker/internal/model"
)

// Analyzer summarizes a product's full observation history
type Analyzer struct {
	history History
}

func NewAnalyzer(history History) *Analyzer {
	return &Analyzer{history: history}
}

// Analyze makes one pass over the ordered history keeping only the
// running first, last, min, max, sum and count.
//
// With fewer than two observations it returns ErrInsufficientData and a
// summary with Available=false. RatePerHour is nil when the first and last
// observation share a timestamp. The rate is not rounded.
func (a *Analyzer) Analyze(ctx context.Context, name string) (model.TrendSummary, error) {
	summary := model.TrendSummary{ProductName: name}

	var (
		first, last model.Observation
		minP, maxP  float64
		sum         = decimal.Zero
	)
	err := a.history.Each(ctx, name, func(obs model.Observation) error {
		if summary.Count == 0 {
			first = obs
			minP, maxP = obs.Price, obs.Price
		}
		last = obs
		if obs.Price < minP {
			minP = obs.Price
		}
		if obs.Price > maxP {
			maxP = obs.Price
		}
		sum = sum.Add(decimal.NewFromFloat(obs.Price))
		summary.Count++
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("read history for %s: %w", name, err)
	}

	if summary.Count > 0 {
		summary.MinPrice = minP
		summary.MaxPrice = maxP
		summary.LatestPrice = last.Price
		summary.FirstSeen = first.Timestamp
		summary.LastSeen = last.Timestamp
		summary.AvgPrice = sum.Div(decimal.NewFromInt(int64(summary.Count))).Round(2).InexactFloat64()
		summary.AtHistoricalLow = last.Price == minP
	}
	if summary.Count < 2 {
		return summary, fmt.Errorf("%s has %d observation(s): %w", name, summary.Count, ErrInsufficientData)
	}

	summary.Available = true

	elapsed := last.Timestamp.Sub(first.Timestamp)
	if elapsed > 0 {
		hours := decimal.NewFromFloat(elapsed.Hours())
		delta := decimal.NewFromFloat(last.Price).Sub(decimal.NewFromFloat(first.Price))
		rate, _ := delta.Div(hours).Float64()
		summary.RatePerHour = model.Float(rate)
	}

	return summary, nil
}

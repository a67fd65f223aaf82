package model

import "time"

// ChangeKind classifies a new price against the immediately preceding one
type ChangeKind string

const (
	ChangeFirst     ChangeKind = "first"
	ChangeDrop      ChangeKind = "drop"
	ChangeRise      ChangeKind = "rise"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ChangeResult is derived each cycle and never persisted.
// OldPrice is nil for ChangeFirst; PercentDelta is nil when it is undefined.
type ChangeResult struct {
	Kind         ChangeKind `json:"kind"`
	OldPrice     *float64   `json:"old_price,omitempty"`
	NewPrice     float64    `json:"new_price"`
	Delta        float64    `json:"delta"`
	PercentDelta *float64   `json:"percent_delta,omitempty"`
}

// TrendSummary aggregates a product's full observation history.
// Available is false when the product has fewer than two observations.
type TrendSummary struct {
	ProductName     string    `json:"product_name"`
	Available       bool      `json:"available"`
	Count           int       `json:"count"`
	MinPrice        float64   `json:"min_price"`
	MaxPrice        float64   `json:"max_price"`
	AvgPrice        float64   `json:"avg_price"`
	LatestPrice     float64   `json:"latest_price"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	RatePerHour     *float64  `json:"rate_per_hour,omitempty"`
	AtHistoricalLow bool      `json:"at_historical_low"`
}

// Alert is raised when a product's latest price is below its threshold
type Alert struct {
	ID          string    `json:"id"`
	ProductName string    `json:"product_name"`
	URL         string    `json:"url,omitempty"`
	Price       float64   `json:"price"`
	Threshold   float64   `json:"threshold"`
	Timestamp   time.Time `json:"timestamp"`
}

// Report is one snapshot produced by the report generator
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Summaries   []TrendSummary `json:"summaries"`
}

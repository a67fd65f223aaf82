package model

import "time"

// ExportRow is one successful product reading accumulated during a cycle
type ExportRow struct {
	Timestamp   time.Time    `json:"timestamp"`
	ProductName string       `json:"product_name"`
	URL         string       `json:"url"`
	Price       float64      `json:"price"`
	Change      ChangeResult `json:"change"`
	Alerted     bool         `json:"alerted"`
}

// CycleFailure records why a product produced no observation in a cycle
type CycleFailure struct {
	ProductName string `json:"product_name,omitempty"`
	URL         string `json:"url"`
	Reason      string `json:"reason"`
}

// CycleReport is the value returned by one pass over the catalog
type CycleReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Cancelled  bool           `json:"cancelled"`
	Rows       []ExportRow    `json:"rows"`
	Alerts     []Alert        `json:"alerts"`
	Failures   []CycleFailure `json:"failures"`
}

// Duration returns how long the cycle took
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

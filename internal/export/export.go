// Package export appends cycle rows to CSV and XLSX files and writes
// report snapshots.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"price-tracker/internal/model"
)

// Exporter appends the rows of one cycle
type Exporter interface {
	Append(rows []model.ExportRow) error
}

var header = []string{"Timestamp", "Product", "Price", "Change", "Delta", "PercentDelta", "Alert", "URL"}

// Multi fans rows out to every exporter and joins their errors
type Multi []Exporter

func (m Multi) Append(rows []model.ExportRow) error {
	var errs []error
	for _, e := range m {
		if err := e.Append(rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// formatter renders row fields the same way for every file format
type formatter struct {
	currency string
}

func (f formatter) record(r model.ExportRow) []string {
	delta, pct := "", ""
	if r.Change.Kind != model.ChangeFirst {
		delta = strconv.FormatFloat(r.Change.Delta, 'f', 2, 64)
	}
	if r.Change.PercentDelta != nil {
		pct = strconv.FormatFloat(*r.Change.PercentDelta, 'f', 2, 64) + "%"
	}
	alert := ""
	if r.Alerted {
		alert = "below threshold"
	}
	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.ProductName,
		f.price(r.Price),
		string(r.Change.Kind),
		delta,
		pct,
		alert,
		r.URL,
	}
}

func (f formatter) price(v float64) string {
	return fmt.Sprintf("%s%.2f", f.currency, v)
}

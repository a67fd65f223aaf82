package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"price-tracker/internal/model"
	"price-tracker/internal/pricing"
)

// CSVExporter appends rows to a CSV file. The header is written only when
// the file is created.
type CSVExporter struct {
	path string
	fmt  formatter
	mu   sync.Mutex
}

var _ Exporter = (*CSVExporter)(nil)

func NewCSVExporter(path, currency string) *CSVExporter {
	return &CSVExporter{path: path, fmt: formatter{currency: currency}}
}

func (e *CSVExporter) Append(rows []model.ExportRow) error {
	if len(rows) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	_, statErr := os.Stat(e.path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write(e.fmt.record(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReportCSV writes each report to report_YYYYMMDD.csv in a directory,
// replacing an earlier snapshot from the same day
type ReportCSV struct {
	dir string
	fmt formatter
}

func NewReportCSV(dir, currency string) *ReportCSV {
	return &ReportCSV{dir: dir, fmt: formatter{currency: currency}}
}

// Path returns the snapshot file for the report's generation day
func (r *ReportCSV) Path(report model.Report) string {
	return filepath.Join(r.dir, "report_"+report.GeneratedAt.Format("20060102")+".csv")
}

func (r *ReportCSV) WriteReport(report model.Report) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(r.Path(report))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Product", "Observations", "Min", "Max", "Average", "Latest", "RatePerHour", "AtHistoricalLow", "FirstSeen", "LastChecked"})
	for _, s := range report.Summaries {
		w.Write(r.summaryRecord(s))
	}
	w.Flush()
	return w.Error()
}

func (r *ReportCSV) summaryRecord(s model.TrendSummary) []string {
	count := strconv.Itoa(s.Count)
	if s.Count == 0 {
		return []string{s.ProductName, count, "", "", "", "", "", "", "", ""}
	}

	rate := "n/a"
	if s.RatePerHour != nil {
		rate = strconv.FormatFloat(pricing.Round(*s.RatePerHour, 4), 'f', -1, 64)
	}
	if !s.Available {
		rate = "insufficient data"
	}

	return []string{
		s.ProductName,
		count,
		r.fmt.price(s.MinPrice),
		r.fmt.price(s.MaxPrice),
		r.fmt.price(s.AvgPrice),
		r.fmt.price(s.LatestPrice),
		rate,
		strconv.FormatBool(s.AtHistoricalLow),
		s.FirstSeen.Format(time.RFC3339),
		s.LastSeen.Format(time.RFC3339),
	}
}

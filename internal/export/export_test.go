package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"price-tracker/internal/model"
)

var rowTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleRows() []model.ExportRow {
	return []model.ExportRow{
		{
			Timestamp:   rowTime,
			ProductName: "iPhone 15",
			URL:         "https://www.flipkart.com/apple-iphone-15/p/itm6ac6485515ae4",
			Price:       64999,
			Change:      model.ChangeResult{Kind: model.ChangeFirst, NewPrice: 64999},
		},
		{
			Timestamp:   rowTime,
			ProductName: "Pixel 8",
			URL:         "https://www.amazon.in/dp/B0CHX1W1XY",
			Price:       54000,
			Change: model.ChangeResult{
				Kind:         model.ChangeDrop,
				OldPrice:     model.Float(60000),
				NewPrice:     54000,
				Delta:        -6000,
				PercentDelta: model.Float(-10),
			},
			Alerted: true,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestCSVExporter_AppendsWithSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prices.csv")
	e := NewCSVExporter(path, "₹")

	if err := e.Append(sampleRows()); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := e.Append(sampleRows()[1:]); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3 rows", len(records))
	}
	if records[0][0] != "Timestamp" || records[0][7] != "URL" {
		t.Errorf("header = %v", records[0])
	}

	first := records[1]
	if first[2] != "₹64999.00" || first[3] != "first" || first[4] != "" || first[5] != "" {
		t.Errorf("first row = %v", first)
	}

	drop := records[2]
	want := []string{"2024-03-01T09:00:00Z", "Pixel 8", "₹54000.00", "drop", "-6000.00", "-10.00%", "below threshold", "https://www.amazon.in/dp/B0CHX1W1XY"}
	for i := range want {
		if drop[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, drop[i], want[i])
		}
	}
}

func TestCSVExporter_EmptyRowsCreateNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := NewCSVExporter(path, "₹").Append(nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file created for empty cycle: %v", err)
	}
}

func TestXLSXExporter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	e := NewXLSXExporter(path, "₹")

	if err := e.Append(sampleRows()); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := e.Append(sampleRows()[:1]); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if rows[0][1] != "Product" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][1] != "Pixel 8" || rows[2][6] != "below threshold" {
		t.Errorf("row 2 = %v", rows[2])
	}
	if rows[3][1] != "iPhone 15" {
		t.Errorf("appended row = %v", rows[3])
	}

	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 {
		t.Error("default sheet left in workbook")
	}
}

type failingExporter struct{}

func (failingExporter) Append([]model.ExportRow) error { return errors.New("disk full") }

func TestMulti_ContinuesPastFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	m := Multi{failingExporter{}, NewCSVExporter(path, "₹")}

	if err := m.Append(sampleRows()); err == nil {
		t.Error("Multi.Append returned nil despite a failing exporter")
	}
	if got := len(readCSV(t, path)); got != 3 {
		t.Errorf("csv has %d records, want 3", got)
	}
}

func TestReportCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewReportCSV(dir, "₹")

	report := model.Report{
		GeneratedAt: rowTime,
		Summaries: []model.TrendSummary{
			{
				ProductName: "iPhone 15", Available: true, Count: 3,
				MinPrice: 60000, MaxPrice: 70000, AvgPrice: 65000, LatestPrice: 60000,
				FirstSeen: rowTime.Add(-4 * time.Hour), LastSeen: rowTime,
				RatePerHour: model.Float(-2500), AtHistoricalLow: true,
			},
			{ProductName: "Pixel 8", Count: 1, MinPrice: 54000, MaxPrice: 54000, AvgPrice: 54000, LatestPrice: 54000, FirstSeen: rowTime, LastSeen: rowTime},
			{ProductName: "Galaxy S24"},
			{
				ProductName: "OnePlus 12", Available: true, Count: 2,
				MinPrice: 100, MaxPrice: 101, AvgPrice: 100.5, LatestPrice: 101,
				FirstSeen: rowTime.Add(-720 * time.Hour), LastSeen: rowTime,
				RatePerHour: model.Float(1.0 / 720),
			},
		},
	}

	if err := w.WriteReport(report); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	path := filepath.Join(dir, "report_20240301.csv")
	if w.Path(report) != path {
		t.Errorf("Path = %q, want %q", w.Path(report), path)
	}

	records := readCSV(t, path)
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if records[1][6] != "-2500" || records[1][7] != "true" {
		t.Errorf("iPhone row = %v", records[1])
	}
	if records[2][6] != "insufficient data" {
		t.Errorf("Pixel rate = %q", records[2][6])
	}
	if records[3][1] != "0" || records[3][2] != "" {
		t.Errorf("empty product row = %v", records[3])
	}
	if records[4][6] != "0.0014" {
		t.Errorf("slow rate = %q, want 0.0014", records[4][6])
	}

	// same day overwrites
	if err := w.WriteReport(model.Report{GeneratedAt: rowTime.Add(time.Hour)}); err != nil {
		t.Fatalf("second WriteReport: %v", err)
	}
	if got := len(readCSV(t, path)); got != 1 {
		t.Errorf("after rewrite got %d records, want header only", got)
	}
}

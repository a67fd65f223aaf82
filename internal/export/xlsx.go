package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"price-tracker/internal/model"
)

const sheetName = "Prices"

// XLSXExporter appends rows to the Prices sheet of a workbook, creating
// the workbook with a header row when it does not exist
type XLSXExporter struct {
	path string
	fmt  formatter
	mu   sync.Mutex
}

var _ Exporter = (*XLSXExporter)(nil)

func NewXLSXExporter(path, currency string) *XLSXExporter {
	return &XLSXExporter{path: path, fmt: formatter{currency: currency}}
}

func (e *XLSXExporter) Append(rows []model.ExportRow) error {
	if len(rows) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.open()
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("read %s: %w", sheetName, err)
	}

	next := len(existing) + 1
	for _, r := range rows {
		record := e.fmt.record(r)
		values := make([]interface{}, len(record))
		for i, v := range record {
			values[i] = v
		}

		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", next, err)
		}
		next++
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}
	return nil
}

// open returns the existing workbook or a new one with the header row
func (e *XLSXExporter) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(e.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
			if _, err := f.NewSheet(sheetName); err != nil {
				f.Close()
				return nil, err
			}
			if err := e.writeHeader(f); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", e.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	f = excelize.NewFile()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	if err := e.writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (e *XLSXExporter) writeHeader(f *excelize.File) error {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	return f.SetSheetRow(sheetName, "A1", &values)
}

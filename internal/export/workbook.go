package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/floodreport/internal/metrics"
)

const defaultSheet = "Sheet1"

// sheetNames maps report names to worksheet names (31 chars max).
var sheetNames = map[string]string{
	"efficiency":  "Regional Efficiency",
	"contractors": "Contractor Ranking",
	"trends":      "Project Type Trends",
	"summary":     "Summary",
}

// WriteWorkbook writes each table to its own worksheet in table order.
// Floats are stored as numbers rounded to two decimals.
func WriteWorkbook(path string, tables []Table) error {
	if len(tables) == 0 {
		return nil
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		name := sheetName(t)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table) error {
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %q: %w", sheet, err)
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if x, ok := v.(float64); ok {
				v = metrics.Round2(metrics.Finite(x))
			}
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d on %q: %w", i+1, sheet, err)
		}
	}
	return nil
}

func sheetName(t Table) string {
	if n, ok := sheetNames[t.Name]; ok {
		return n
	}
	if len(t.Name) > 31 {
		return t.Name[:31]
	}
	return t.Name
}

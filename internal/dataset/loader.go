package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/floodreport/internal/columns"
)

var (
	// ErrFilterColumnMissing indicates the window's date column is absent from the header row.
	ErrFilterColumnMissing = errors.New("dataset: filter column not found")
	// ErrUnsupportedFormat indicates the file extension has no loader.
	ErrUnsupportedFormat = errors.New("dataset: unsupported format")
	// ErrNoHeader indicates the source contained no header row.
	ErrNoHeader = errors.New("dataset: missing header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures Load.
type Options struct {
	Window Window
	// Sheet selects the worksheet for workbook sources; the first sheet is used when empty.
	Sheet string
}

// Load reads the file at path, keeps rows whose window date falls inside the
// configured year range and returns the filtered Dataset.
func Load(ctx context.Context, path string, opts Options) (*Dataset, error) {
	var (
		headers []string
		rows    [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		headers, rows, err = readCSVFile(path)
	case ".xlsx", ".xlsm":
		headers, rows, err = readWorkbook(path, opts.Sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	ds, err := Filter(ctx, headers, rows, opts.Window)
	if err != nil {
		return nil, err
	}
	ds.Source = path

	zerolog.Ctx(ctx).Info().
		Str("source", path).
		Int("rows_loaded", ds.TotalCount).
		Int("rows_filtered", ds.FilteredCount).
		Str("window", ds.Window.Label()).
		Msg("dataset loaded")
	return ds, nil
}

// ReadCSV parses CSV content (header row first) and applies the window filter.
func ReadCSV(ctx context.Context, r io.Reader, w Window) (*Dataset, error) {
	headers, rows, err := parseCSV(r)
	if err != nil {
		return nil, err
	}
	return Filter(ctx, headers, rows, w)
}

// Filter keeps rows whose leading four-digit year in the window's date column
// lies within the window. Rows with an unparseable year are dropped.
func Filter(ctx context.Context, headers []string, rows [][]string, w Window) (*Dataset, error) {
	if len(headers) == 0 {
		return nil, ErrNoHeader
	}
	idx, ok := columns.Resolve(headers, w.DateColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFilterColumnMissing, w.DateColumn)
	}

	kept := make([]Record, 0, len(rows))
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := Record(row)
		year, ok := yearOf(rec.Field(idx))
		if !ok || !w.Contains(year) {
			continue
		}
		kept = append(kept, rec)
	}

	ds := New(headers, kept, len(rows))
	ds.Window = w
	return ds, nil
}

func readCSVFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]string, [][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoHeader
	}
	return records[0], records[1:], nil
}

func readWorkbook(path, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if strings.TrimSpace(sheet) == "" {
		sheet = f.GetSheetName(0)
	}
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer it.Close()

	var (
		headers []string
		rows    [][]string
		seen    bool
	)
	for it.Next() {
		vals, err := it.Columns()
		if err != nil {
			return nil, nil, err
		}
		if !seen {
			headers, seen = vals, true
			continue
		}
		rows = append(rows, vals)
	}
	if err := it.Error(); err != nil {
		return nil, nil, err
	}
	if len(headers) == 0 {
		return nil, nil, ErrNoHeader
	}
	return headers, rows, nil
}

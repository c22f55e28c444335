// Package export persists finished reports as CSV files, a JSON summary and
// an optional multi-sheet workbook, and renders them as console tables.
package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/metrics"
	"github.com/vinodismyname/floodreport/internal/reports"
)

const (
	efficiencyFile  = config.EfficiencyFileName
	contractorsFile = config.ContractorsFileName
	trendsFile      = config.TrendsFileName
	summaryFile     = config.SummaryFileName
	workbookFile    = config.WorkbookFileName
)

// Error reports a failed export of one report.
type Error struct {
	Report string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Report, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Exporter writes each report into Dir. With Workbook set it also buffers the
// tables and writes them as one workbook on Flush.
type Exporter struct {
	Dir      string
	Workbook bool
	tables   []Table
}

// New returns an Exporter rooted at dir.
func New(dir string, workbook bool) *Exporter {
	return &Exporter{Dir: dir, Workbook: workbook}
}

// Path returns the output location of file.
func (e *Exporter) Path(file string) string {
	return filepath.Join(e.Dir, file)
}

func (e *Exporter) Efficiency(ctx context.Context, rep reports.EfficiencyReport) error {
	return e.writeTable(ctx, EfficiencyTable(rep), efficiencyFile)
}

func (e *Exporter) Contractors(ctx context.Context, rep reports.ContractorReport) error {
	return e.writeTable(ctx, ContractorTable(rep), contractorsFile)
}

func (e *Exporter) Trends(ctx context.Context, rep reports.TrendReport) error {
	return e.writeTable(ctx, TrendTable(rep), trendsFile)
}

// Summary writes the summary document with every float rounded to two decimals.
func (e *Exporter) Summary(ctx context.Context, s reports.Summary) error {
	doc := s
	doc.GlobalAvgDelay = metrics.Round2(metrics.Finite(s.GlobalAvgDelay))
	doc.TotalSavings = metrics.Round2(metrics.Finite(s.TotalSavings))

	path := e.Path(summaryFile)
	if err := WriteJSON(path, doc); err != nil {
		return &Error{Report: reports.NameSummary, Path: path, Err: err}
	}
	zerolog.Ctx(ctx).Info().Str("report", reports.NameSummary).Str("path", path).Msg("report exported")
	if e.Workbook {
		e.tables = append(e.tables, SummaryTable(doc))
	}
	return nil
}

// Flush writes the buffered workbook, if any.
func (e *Exporter) Flush(ctx context.Context) error {
	if !e.Workbook || len(e.tables) == 0 {
		return nil
	}
	path := e.Path(workbookFile)
	tables := e.tables
	e.tables = nil
	if err := WriteWorkbook(path, tables); err != nil {
		return &Error{Report: "workbook", Path: path, Err: err}
	}
	zerolog.Ctx(ctx).Info().Str("path", path).Int("sheets", len(tables)).Msg("workbook exported")
	return nil
}

func (e *Exporter) writeTable(ctx context.Context, t Table, file string) error {
	path := e.Path(file)
	if err := WriteCSV(path, t); err != nil {
		return &Error{Report: t.Name, Path: path, Err: err}
	}
	zerolog.Ctx(ctx).Info().
		Str("report", t.Name).
		Str("path", path).
		Int("rows", len(t.Rows)).
		Msg("report exported")
	if e.Workbook {
		e.tables = append(e.tables, t)
	}
	return nil
}

var (
	_ reports.Sink    = (*Exporter)(nil)
	_ reports.Flusher = (*Exporter)(nil)
	_ reports.Sink    = (*Console)(nil)
)

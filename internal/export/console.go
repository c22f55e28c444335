package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/vinodismyname/floodreport/internal/reports"
)

const consoleTemplate = `
{{.Title}}
{{with .Window}}(Filtered: {{.}} Projects)
{{end}}
{{separator}}
{{formatRow .Headers}}
{{separator}}
{{range .Records}}{{formatRow .}}
{{end}}{{separator}}
{{with .Note}}{{.}}
{{end}}`

// Console renders reports as fixed-width text tables.
type Console struct {
	// OutDir, when set, is named in the note under each table.
	OutDir string
	writer io.Writer
	tmpl   *template.Template
	widths []int
}

// NewConsole returns a renderer writing to w, stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{writer: w}
	c.tmpl = template.Must(template.New("table").Funcs(template.FuncMap{
		"formatRow": c.formatRow,
		"separator": c.separator,
	}).Parse(consoleTemplate))
	return c
}

type consoleView struct {
	Title   string
	Window  string
	Headers []string
	Records [][]string
	Note    string
}

// Render writes t with column widths fitted to its widest cells.
func (c *Console) Render(t Table, window, note string) error {
	view := consoleView{Title: t.Title, Window: window, Headers: t.Headers, Records: t.Records(), Note: note}
	c.widths = make([]int, len(t.Headers))
	for i, h := range t.Headers {
		c.widths[i] = utf8.RuneCountInString(h)
	}
	for _, rec := range view.Records {
		for i, cell := range rec {
			if i < len(c.widths) {
				c.widths[i] = max(c.widths[i], utf8.RuneCountInString(cell))
			}
		}
	}
	if err := c.tmpl.Execute(c.writer, view); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func (c *Console) formatRow(cells []string) string {
	var b strings.Builder
	b.WriteString("|")
	for i, w := range c.widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		fmt.Fprintf(&b, " %s%s |", cell, strings.Repeat(" ", w-utf8.RuneCountInString(cell)))
	}
	return b.String()
}

func (c *Console) separator() string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range c.widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("+")
	}
	return b.String()
}

func (c *Console) Efficiency(_ context.Context, rep reports.EfficiencyReport) error {
	return c.Render(EfficiencyTable(rep), rep.Meta.Window, c.note("Full table exported to", efficiencyFile))
}

func (c *Console) Contractors(_ context.Context, rep reports.ContractorReport) error {
	return c.Render(ContractorTable(rep), rep.Meta.Window, c.note("Full table exported to", contractorsFile))
}

func (c *Console) Trends(_ context.Context, rep reports.TrendReport) error {
	return c.Render(TrendTable(rep), rep.Meta.Window, c.note("Full table exported to", trendsFile))
}

func (c *Console) Summary(_ context.Context, s reports.Summary) error {
	return c.Render(SummaryTable(s), s.Meta.Window, c.note("Summary saved to", summaryFile))
}

func (c *Console) note(prefix, file string) string {
	if c.OutDir == "" {
		return ""
	}
	return fmt.Sprintf("(%s %s)", prefix, filepath.Join(c.OutDir, file))
}

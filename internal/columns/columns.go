// Package columns maps logical field names onto header positions, tolerating
// the spelling variants found across dataset releases.
package columns

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinodismyname/floodreport/internal/metrics"
)

// Row is any positional record that can return a raw field by index.
type Row interface {
	Field(i int) string
}

// Field is a logical column with the header spellings it may appear under,
// most preferred first. An Optional field that does not resolve is not
// reported as a warning; callers fall back to a derived value instead.
type Field struct {
	Name     string
	Aliases  []string
	Optional bool
}

// Candidates returns the logical name followed by its aliases, without duplicates.
func (f Field) Candidates() []string {
	out := make([]string, 0, len(f.Aliases)+1)
	seen := map[string]struct{}{}
	for _, c := range append([]string{f.Name}, f.Aliases...) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Logical fields used by the reports.
var (
	Region       = Field{Name: "Region"}
	MainIsland   = Field{Name: "MainIsland", Aliases: []string{"Main Island"}}
	Budget       = Field{Name: "ApprovedBudgetForContract", Aliases: []string{"ApprovedBudget", "ApprovedBudgetForContractPHP"}}
	ContractCost = Field{Name: "ContractCost", Aliases: []string{"Contract Cost", "Contract_Cost"}}
	StartDate    = Field{Name: "StartDate", Aliases: []string{"Start Date"}}
	Completion   = Field{Name: "ActualCompletionDate", Aliases: []string{"Actual Completion Date", "ActualCompletion"}}
	Contractor   = Field{Name: "Contractor"}
	FundingYear  = Field{Name: "FundingYear", Aliases: []string{"Funding Year"}}
	TypeOfWork   = Field{Name: "TypeOfWork", Aliases: []string{"Type of Work"}}
	Province     = Field{Name: "Province"}

	// Precomputed columns some releases carry. When present they take
	// precedence over the values derived from budget, cost and dates.
	CostSavings = Field{Name: "CostSavings", Aliases: []string{"Cost Savings", "Cost_Savings"}, Optional: true}
	DelayDays   = Field{Name: "CompletionDelayDays", Aliases: []string{"Completion Delay Days", "DelayDays"}, Optional: true}
)

// Resolve returns the index of the first alias found in headers. Each alias is
// tried as an exact match first, then trimmed and case-insensitively.
func Resolve(headers []string, aliases ...string) (int, bool) {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias {
				return i, true
			}
		}
		want := strings.ToLower(strings.TrimSpace(alias))
		if want == "" {
			continue
		}
		for i, h := range headers {
			if strings.ToLower(strings.TrimSpace(h)) == want {
				return i, true
			}
		}
	}
	return -1, false
}

// Warning records a logical field that could not be resolved.
type Warning struct {
	Field   string
	Aliases []string
}

func (w Warning) String() string {
	return fmt.Sprintf("column %q not found (tried %s); values default to zero/empty", w.Field, strings.Join(w.Aliases, ", "))
}

// Binding holds resolved positions for a set of fields within one header row.
type Binding struct {
	index    map[string]int
	warnings []Warning
}

// Bind resolves every field against headers. Unresolved required fields are
// recorded as warnings; every unresolved field reads back as a zero value.
func Bind(headers []string, fields ...Field) Binding {
	b := Binding{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, done := b.index[f.Name]; done {
			continue
		}
		cands := f.Candidates()
		idx, ok := Resolve(headers, cands...)
		if !ok {
			idx = -1
			if !f.Optional {
				b.warnings = append(b.warnings, Warning{Field: f.Name, Aliases: cands})
			}
		}
		b.index[f.Name] = idx
	}
	return b
}

// Has reports whether f resolved to a column.
func (b Binding) Has(f Field) bool {
	idx, ok := b.index[f.Name]
	return ok && idx >= 0
}

// Index returns the resolved column position for f, or -1.
func (b Binding) Index(f Field) int {
	if idx, ok := b.index[f.Name]; ok {
		return idx
	}
	return -1
}

// Warnings returns the unresolved fields in bind order.
func (b Binding) Warnings() []Warning {
	return b.warnings
}

// Messages renders Warnings as strings.
func (b Binding) Messages() []string {
	if len(b.warnings) == 0 {
		return nil
	}
	out := make([]string, len(b.warnings))
	for i, w := range b.warnings {
		out[i] = w.String()
	}
	return out
}

// String returns the trimmed value of f in row, "" when absent.
func (b Binding) String(row Row, f Field) string {
	return strings.TrimSpace(row.Field(b.Index(f)))
}

// Amount returns the numeric value of f in row, 0 when absent or unparseable.
func (b Binding) Amount(row Row, f Field) float64 {
	return metrics.ParseAmount(row.Field(b.Index(f)))
}

// Date returns the parsed date of f in row.
func (b Binding) Date(row Row, f Field) (time.Time, bool) {
	return metrics.ParseDate(row.Field(b.Index(f)))
}

// Delay returns the clamped completion delay in days between the start and
// end fields, 0 when either date is missing.
func (b Binding) Delay(row Row, start, end Field) float64 {
	s, okS := b.Date(row, start)
	e, okE := b.Date(row, end)
	if !okS || !okE {
		return 0
	}
	return float64(metrics.DelayDays(s, e))
}

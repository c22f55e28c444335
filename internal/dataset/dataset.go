package dataset

import (
	"strconv"
	"strings"
)

// Record is one raw row aligned positionally with Dataset.Headers. Values are
// kept as text; coercion happens per report at the point of use.
type Record []string

// Field returns the raw value at index i, or "" when the row is short or i is negative.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Window is the inclusive year range applied to DateColumn at load time.
type Window struct {
	DateColumn string `json:"date_column"`
	FromYear   int    `json:"from_year"`
	ToYear     int    `json:"to_year"`
}

// Contains reports whether year lies within the window bounds.
func (w Window) Contains(year int) bool {
	return year >= w.FromYear && year <= w.ToYear
}

// Label renders the window as "2021-2023".
func (w Window) Label() string {
	if w.FromYear == w.ToYear {
		return strconv.Itoa(w.FromYear)
	}
	return strconv.Itoa(w.FromYear) + "-" + strconv.Itoa(w.ToYear)
}

// Dataset is an in-memory table of filtered rows. It is built once by Load
// and treated as read-only by every report.
type Dataset struct {
	Source        string
	Headers       []string
	Rows          []Record
	TotalCount    int
	FilteredCount int
	Window        Window
}

// New assembles a Dataset from already-filtered rows. TotalCount defaults to
// the number of rows when total is smaller.
func New(headers []string, rows []Record, total int) *Dataset {
	if total < len(rows) {
		total = len(rows)
	}
	return &Dataset{
		Headers:       headers,
		Rows:          rows,
		TotalCount:    total,
		FilteredCount: len(rows),
	}
}

// yearOf extracts the leading four-digit year of a trimmed date cell.
func yearOf(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

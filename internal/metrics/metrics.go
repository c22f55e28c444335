// Package metrics holds the numeric and date primitives shared by every report.
// None of them fail: malformed input degrades to a zero value so a single bad
// cell never aborts an aggregation pass.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParseAmount parses a currency-formatted cell such as "1,234,567.89" or
// "₱ 12,000". Empty, malformed or non-finite input yields 0.
func ParseAmount(raw string) float64 {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '₱', ' ', '\t':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(raw))
	if clean == "" {
		return 0
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return Finite(f)
}

// dateLayouts are tried in order; day-first layouts precede month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"01-02-2006",
	"2/1/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses a calendar date using the accepted layouts. The result is
// normalized to midnight UTC so day arithmetic is exact.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DelayDays returns the whole days from start to end, clamped at 0 when end
// precedes start.
func DelayDays(start, end time.Time) int {
	days := int(math.Round(end.Sub(start).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// DelayBetween parses both raw dates and returns their clamped delay, or 0
// when either is missing or unparseable.
func DelayBetween(startRaw, endRaw string) int {
	s, okS := ParseDate(startRaw)
	e, okE := ParseDate(endRaw)
	if !okS || !okE {
		return 0
	}
	return DelayDays(s, e)
}

// Median returns the middle value of values (mean of the two middle values for
// even counts) without mutating the input. Empty input yields 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Sum adds values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// PercentageAbove returns the share of values strictly greater than threshold
// as a percentage, 0 for empty input.
func PercentageAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return 100 * float64(count) / float64(len(values))
}

// Negate returns a copy of values with every sign flipped.
func Negate(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = -v
	}
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Finite maps NaN and ±Inf to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

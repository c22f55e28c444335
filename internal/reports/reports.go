// Package reports turns a filtered dataset into the regional efficiency,
// contractor ranking, project-type trend and summary reports.
//
// Every report is a single pass pipeline over a borrowed, read-only dataset:
// bind columns, group rows, reduce each group, then normalize, rank or trend.
// No state survives between invocations, so re-running a report over the same
// dataset yields identical rows.
package reports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/columns"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/metrics"
)

// ErrEmptyGroupSet signals that a report had nothing to aggregate. The
// accompanying result is empty but valid.
var ErrEmptyGroupSet = errors.New("reports: no records to report on")

// Report names accepted by Runner selections and CLI flags.
const (
	NameEfficiency  = "efficiency"
	NameContractors = "contractors"
	NameTrends      = "trends"
	NameSummary     = "summary"
)

// Names lists every report in presentation order.
var Names = []string{NameEfficiency, NameContractors, NameTrends, NameSummary}

// ZeroDelayPolicy decides the raw efficiency score of a group whose average
// delay is zero.
type ZeroDelayPolicy int

const (
	// ZeroDelayScoresZero assigns a raw score of 0.
	ZeroDelayScoresZero ZeroDelayPolicy = iota
	// ZeroDelayRewardsSavings assigns medianSavings * 100.
	ZeroDelayRewardsSavings
)

func (p ZeroDelayPolicy) String() string {
	if p == ZeroDelayRewardsSavings {
		return "savings"
	}
	return "zero"
}

// ParseZeroDelayPolicy maps the config spelling ("zero" or "savings") to a policy.
func ParseZeroDelayPolicy(s string) (ZeroDelayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return ZeroDelayScoresZero, nil
	case "savings":
		return ZeroDelayRewardsSavings, nil
	}
	return ZeroDelayScoresZero, fmt.Errorf("reports: unknown zero delay policy %q", s)
}

// Options tunes report thresholds. Zero fields fall back to defaults.
type Options struct {
	ZeroDelay          ZeroDelayPolicy
	HighDelayDays      float64
	MinProjects        int
	TopContractors     int
	ReliabilityHorizon float64
	HighRiskBelow      float64
	Epsilon            float64
}

// DefaultOptions returns the calibrated thresholds.
func DefaultOptions() Options {
	return Options{
		ZeroDelay:          ZeroDelayScoresZero,
		HighDelayDays:      config.DefaultHighDelayDays,
		MinProjects:        config.DefaultMinContractorRows,
		TopContractors:     config.DefaultTopContractors,
		ReliabilityHorizon: config.DefaultReliabilityHorizon,
		HighRiskBelow:      config.DefaultHighRiskBelow,
		Epsilon:            config.DefaultScoreEpsilon,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HighDelayDays <= 0 {
		o.HighDelayDays = d.HighDelayDays
	}
	if o.MinProjects <= 0 {
		o.MinProjects = d.MinProjects
	}
	if o.TopContractors <= 0 {
		o.TopContractors = d.TopContractors
	}
	if o.ReliabilityHorizon <= 0 {
		o.ReliabilityHorizon = d.ReliabilityHorizon
	}
	if o.HighRiskBelow <= 0 {
		o.HighRiskBelow = d.HighRiskBelow
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	return o
}

// Meta describes the input a report was computed from.
type Meta struct {
	Window       string `json:"window"`
	Rows         int    `json:"rows"`
	Groups       int    `json:"groups"`
	Excluded     int    `json:"excluded_groups,omitempty"`
	Truncated    bool   `json:"truncated,omitempty"`
	ZeroDelay    string `json:"zero_delay_policy,omitempty"`
	BaselineYear string `json:"baseline_year,omitempty"`
}

// project is the per-row metric tuple shared by the cost-based reports.
type project struct {
	budget  float64
	cost    float64
	savings float64
	delay   float64
}

func projectOf(b columns.Binding) func(dataset.Record) project {
	return func(rec dataset.Record) project {
		budget := b.Amount(rec, columns.Budget)
		cost := b.Amount(rec, columns.ContractCost)
		return project{
			budget:  budget,
			cost:    cost,
			savings: savingsOf(b, rec),
			delay:   delayOf(b, rec),
		}
	}
}

// savingsOf reads the CostSavings column when the header has one and
// otherwise computes budget minus contract cost.
func savingsOf(b columns.Binding, rec dataset.Record) float64 {
	if b.Has(columns.CostSavings) {
		return b.Amount(rec, columns.CostSavings)
	}
	return b.Amount(rec, columns.Budget) - b.Amount(rec, columns.ContractCost)
}

// delayOf reads the CompletionDelayDays column when the header has one and
// otherwise derives the delay from the start and completion dates. Negative
// values clamp to 0 either way.
func delayOf(b columns.Binding, rec dataset.Record) float64 {
	if b.Has(columns.DelayDays) {
		return math.Max(0, metrics.Finite(b.Amount(rec, columns.DelayDays)))
	}
	return b.Delay(rec, columns.StartDate, columns.Completion)
}

func (p project) Budget() float64  { return p.budget }
func (p project) Cost() float64    { return p.cost }
func (p project) Savings() float64 { return p.savings }
func (p project) Delay() float64   { return p.delay }

// logWarnings surfaces unresolved columns on the context logger.
func logWarnings(ctx context.Context, report string, b columns.Binding) []string {
	logger := zerolog.Ctx(ctx)
	for _, w := range b.Warnings() {
		logger.Warn().
			Str("report", report).
			Str("field", w.Field).
			Strs("aliases", w.Aliases).
			Msg("column not found; using zero/empty defaults")
	}
	return b.Messages()
}

func metaOf(ds *dataset.Dataset, groups int) Meta {
	return Meta{Window: ds.Window.Label(), Rows: len(ds.Rows), Groups: groups}
}

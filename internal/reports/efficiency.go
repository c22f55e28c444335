package reports

import (
	"context"
	"math"
	"sort"

	"github.com/vinodismyname/floodreport/internal/columns"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/engine"
	"github.com/vinodismyname/floodreport/internal/metrics"
)

// EfficiencyRow aggregates one (Region, MainIsland) group.
type EfficiencyRow struct {
	Region          string  `json:"region"`
	MainIsland      string  `json:"main_island"`
	Projects        int     `json:"projects"`
	TotalBudget     float64 `json:"total_budget"`
	MedianSavings   float64 `json:"median_savings"`
	AvgDelay        float64 `json:"avg_delay"`
	HighDelayPct    float64 `json:"high_delay_pct"`
	RawScore        float64 `json:"-"`
	EfficiencyScore float64 `json:"efficiency_score"`
}

// EfficiencyReport is the regional efficiency result.
type EfficiencyReport struct {
	Rows     []EfficiencyRow `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
	Meta     Meta            `json:"meta"`
}

// Efficiency groups rows by (Region, MainIsland), scores each group by median
// savings per day of average delay and rescales the scores onto [0, 100].
func Efficiency(ctx context.Context, ds *dataset.Dataset, opts Options) (EfficiencyReport, error) {
	opts = opts.withDefaults()
	b := columns.Bind(ds.Headers,
		columns.Region, columns.MainIsland,
		columns.Budget, columns.ContractCost,
		columns.StartDate, columns.Completion,
		columns.CostSavings, columns.DelayDays,
	)
	rep := EfficiencyReport{Warnings: logWarnings(ctx, NameEfficiency, b)}

	part := engine.GroupBy(ds.Rows,
		func(rec dataset.Record) engine.Pair {
			return engine.Pair{A: b.String(rec, columns.Region), B: b.String(rec, columns.MainIsland)}
		},
		projectOf(b),
	)
	rep.Meta = metaOf(ds, part.Len())
	rep.Meta.ZeroDelay = opts.ZeroDelay.String()
	if part.Len() == 0 {
		rep.Rows = []EfficiencyRow{}
		return rep, ErrEmptyGroupSet
	}

	rows := engine.Reduce(part, engine.PairLess, func(k engine.Pair, members []project) (EfficiencyRow, bool) {
		delays := engine.Column(members, project.Delay)
		row := EfficiencyRow{
			Region:        k.A,
			MainIsland:    k.B,
			Projects:      len(members),
			TotalBudget:   metrics.Sum(engine.Column(members, project.Budget)),
			MedianSavings: metrics.Median(engine.Column(members, project.Savings)),
			AvgDelay:      metrics.Mean(delays),
			HighDelayPct:  metrics.PercentageAbove(delays, opts.HighDelayDays),
		}
		row.RawScore = RawEfficiency(row.MedianSavings, row.AvgDelay, opts.ZeroDelay)
		return row, true
	})

	raw := make([]float64, len(rows))
	for i := range rows {
		raw[i] = rows[i].RawScore
	}
	for i, s := range Normalize(raw, opts.Epsilon) {
		rows[i].EfficiencyScore = s
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EfficiencyScore != rows[j].EfficiencyScore {
			return rows[i].EfficiencyScore > rows[j].EfficiencyScore
		}
		if rows[i].Region != rows[j].Region {
			return rows[i].Region < rows[j].Region
		}
		return rows[i].MainIsland < rows[j].MainIsland
	})
	rep.Rows = rows
	return rep, nil
}

// RawEfficiency is (medianSavings / avgDelay) * 100. A zero average delay is
// resolved by policy.
func RawEfficiency(medianSavings, avgDelay float64, policy ZeroDelayPolicy) float64 {
	if avgDelay > 0 {
		return metrics.Finite(medianSavings / avgDelay * 100)
	}
	if policy == ZeroDelayRewardsSavings {
		return metrics.Finite(medianSavings * 100)
	}
	return 0
}

// Normalize min-max rescales raw onto [0, 100]. When every value lies within
// epsilon of the others all scores become 100. Non-finite results map to 0.
func Normalize(raw []float64, epsilon float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range raw {
		v = metrics.Finite(v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if math.Abs(span) < epsilon {
		for i := range out {
			out[i] = 100
		}
		return out
	}
	for i, v := range raw {
		out[i] = metrics.Finite((metrics.Finite(v) - lo) / span * 100)
	}
	return out
}

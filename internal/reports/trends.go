package reports

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/vinodismyname/floodreport/internal/columns"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/engine"
	"github.com/vinodismyname/floodreport/internal/metrics"
)

// TrendRow aggregates one (FundingYear, TypeOfWork) group.
type TrendRow struct {
	FundingYear   string  `json:"funding_year"`
	TypeOfWork    string  `json:"type_of_work"`
	TotalProjects int     `json:"total_projects"`
	AvgSavings    float64 `json:"avg_savings"`
	OverrunRate   float64 `json:"overrun_rate"`
	YoYChange     float64 `json:"yoy_change"`
}

// TrendReport is the project-type trend result.
type TrendReport struct {
	Rows     []TrendRow `json:"rows"`
	Warnings []string   `json:"warnings,omitempty"`
	Meta     Meta       `json:"meta"`
}

// Trends groups rows by (FundingYear, TypeOfWork) and compares each group's
// average savings with the same type in the earliest year present.
func Trends(ctx context.Context, ds *dataset.Dataset, opts Options) (TrendReport, error) {
	opts = opts.withDefaults()
	b := columns.Bind(ds.Headers,
		columns.FundingYear, columns.TypeOfWork,
		columns.Budget, columns.ContractCost, columns.CostSavings,
	)
	rep := TrendReport{Warnings: logWarnings(ctx, NameTrends, b)}

	part := engine.GroupBy(ds.Rows,
		func(rec dataset.Record) engine.Pair {
			return engine.Pair{A: b.String(rec, columns.FundingYear), B: b.String(rec, columns.TypeOfWork)}
		},
		func(rec dataset.Record) float64 { return savingsOf(b, rec) },
	)
	rep.Meta = metaOf(ds, part.Len())
	if part.Len() == 0 {
		rep.Rows = []TrendRow{}
		return rep, ErrEmptyGroupSet
	}

	rows := engine.Reduce(part, trendKeyLess, func(k engine.Pair, savings []float64) (TrendRow, bool) {
		return TrendRow{
			FundingYear:   k.A,
			TypeOfWork:    k.B,
			TotalProjects: len(savings),
			AvgSavings:    metrics.Mean(savings),
			OverrunRate:   metrics.PercentageAbove(metrics.Negate(savings), 0),
		}, true
	})

	// Rows arrive in year order, so the first year seen is the baseline.
	baselineYear := rows[0].FundingYear
	baseline := make(map[string]float64)
	for _, r := range rows {
		if r.FundingYear == baselineYear {
			baseline[r.TypeOfWork] = r.AvgSavings
		}
	}
	for i := range rows {
		if rows[i].FundingYear == baselineYear {
			continue
		}
		base, ok := baseline[rows[i].TypeOfWork]
		if !ok {
			base = rows[i].AvgSavings
		}
		rows[i].YoYChange = YoYChange(rows[i].AvgSavings, base, opts.Epsilon)
	}
	rep.Meta.BaselineYear = baselineYear

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FundingYear != rows[j].FundingYear {
			return yearLess(rows[i].FundingYear, rows[j].FundingYear)
		}
		if rows[i].AvgSavings != rows[j].AvgSavings {
			return rows[i].AvgSavings > rows[j].AvgSavings
		}
		return rows[i].TypeOfWork < rows[j].TypeOfWork
	})
	rep.Rows = rows
	return rep, nil
}

// YoYChange is the percentage change of current over baseline, 0 when the
// baseline is within epsilon of zero.
func YoYChange(current, baseline, epsilon float64) float64 {
	if math.Abs(baseline) < epsilon {
		return 0
	}
	return metrics.Finite((current - baseline) / baseline * 100)
}

// yearLess compares funding years numerically when both parse, otherwise
// lexicographically.
func yearLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		if ai != bi {
			return ai < bi
		}
		return a < b
	}
	if (errA == nil) != (errB == nil) {
		return errA == nil
	}
	return a < b
}

func trendKeyLess(a, b engine.Pair) bool {
	if a.A != b.A {
		return yearLess(a.A, b.A)
	}
	return a.B < b.B
}

package reports

import (
	"context"
	"sort"

	"github.com/vinodismyname/floodreport/internal/columns"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/engine"
	"github.com/vinodismyname/floodreport/internal/metrics"
)

// RiskHigh flags a contractor whose reliability index is below the threshold.
const RiskHigh = "High Risk"

// ContractorRow aggregates one contractor.
type ContractorRow struct {
	Rank             int     `json:"rank"`
	Contractor       string  `json:"contractor"`
	TotalCost        float64 `json:"total_cost"`
	NumProjects      int     `json:"num_projects"`
	AvgDelay         float64 `json:"avg_delay"`
	TotalSavings     float64 `json:"total_savings"`
	ReliabilityIndex float64 `json:"reliability_index"`
	RiskFlag         string  `json:"risk_flag"`
}

// ContractorReport is the contractor ranking result.
type ContractorReport struct {
	Rows     []ContractorRow `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
	Meta     Meta            `json:"meta"`
}

// Contractors ranks contractors with at least MinProjects rows by total
// contract cost and keeps the first TopContractors.
func Contractors(ctx context.Context, ds *dataset.Dataset, opts Options) (ContractorReport, error) {
	opts = opts.withDefaults()
	b := columns.Bind(ds.Headers,
		columns.Contractor,
		columns.Budget, columns.ContractCost,
		columns.StartDate, columns.Completion,
		columns.CostSavings, columns.DelayDays,
	)
	rep := ContractorReport{Warnings: logWarnings(ctx, NameContractors, b)}

	part := engine.GroupBy(ds.Rows,
		func(rec dataset.Record) string { return b.String(rec, columns.Contractor) },
		projectOf(b),
	)
	rep.Meta = metaOf(ds, part.Len())

	rows := engine.Reduce(part, engine.StringLess, func(name string, members []project) (ContractorRow, bool) {
		if len(members) < opts.MinProjects {
			return ContractorRow{}, false
		}
		row := ContractorRow{
			Contractor:   name,
			TotalCost:    metrics.Sum(engine.Column(members, project.Cost)),
			NumProjects:  len(members),
			AvgDelay:     metrics.Mean(engine.Column(members, project.Delay)),
			TotalSavings: metrics.Sum(engine.Column(members, project.Savings)),
		}
		row.ReliabilityIndex = Reliability(row.AvgDelay, row.TotalSavings, row.TotalCost, opts.ReliabilityHorizon)
		row.RiskFlag = RiskFlag(row.ReliabilityIndex, opts.HighRiskBelow)
		return row, true
	})
	rep.Meta.Excluded = part.Len() - len(rows)
	if len(rows) == 0 {
		rep.Rows = []ContractorRow{}
		return rep, ErrEmptyGroupSet
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalCost != rows[j].TotalCost {
			return rows[i].TotalCost > rows[j].TotalCost
		}
		return rows[i].Contractor < rows[j].Contractor
	})
	if len(rows) > opts.TopContractors {
		rows = rows[:opts.TopContractors]
		rep.Meta.Truncated = true
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	rep.Rows = rows
	return rep, nil
}

// Reliability is (1 - avgDelay/horizon) * (totalSavings/totalCost) * 100,
// clamped to [0, 100]. A zero cost contributes a savings ratio of 0.
func Reliability(avgDelay, totalSavings, totalCost, horizon float64) float64 {
	if horizon <= 0 {
		return 0
	}
	var ratio float64
	if totalCost != 0 {
		ratio = metrics.Finite(totalSavings / totalCost)
	}
	return metrics.Clamp(0, 100, metrics.Finite((1-avgDelay/horizon)*ratio*100))
}

// RiskFlag labels a reliability index below threshold as high risk and
// leaves every other contractor unflagged.
func RiskFlag(reliability, threshold float64) string {
	if reliability < threshold {
		return RiskHigh
	}
	return ""
}

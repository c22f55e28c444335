package reports

import (
	"context"

	"github.com/vinodismyname/floodreport/internal/columns"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/metrics"
)

// Summary aggregates the whole filtered dataset.
type Summary struct {
	TotalProjects    int      `json:"total_projects"`
	TotalContractors int      `json:"total_contractors"`
	TotalProvinces   int      `json:"total_provinces"`
	GlobalAvgDelay   float64  `json:"global_avg_delay"`
	TotalSavings     float64  `json:"total_savings"`
	Warnings         []string `json:"-"`
	Meta             Meta     `json:"-"`
}

// Summarize counts projects, distinct contractors and provinces, and averages
// delay across every row. Rows without dates contribute a delay of 0.
func Summarize(ctx context.Context, ds *dataset.Dataset) (Summary, error) {
	b := columns.Bind(ds.Headers,
		columns.Contractor, columns.Province,
		columns.Budget, columns.ContractCost,
		columns.StartDate, columns.Completion,
		columns.CostSavings, columns.DelayDays,
	)
	s := Summary{Warnings: logWarnings(ctx, NameSummary, b), Meta: metaOf(ds, 0)}
	if len(ds.Rows) == 0 {
		return s, ErrEmptyGroupSet
	}

	contractors := make(map[string]struct{})
	provinces := make(map[string]struct{})
	delays := make([]float64, 0, len(ds.Rows))
	next := projectOf(b)
	for _, rec := range ds.Rows {
		if c := b.String(rec, columns.Contractor); c != "" {
			contractors[c] = struct{}{}
		}
		if p := b.String(rec, columns.Province); p != "" {
			provinces[p] = struct{}{}
		}
		p := next(rec)
		delays = append(delays, p.delay)
		s.TotalSavings += p.savings
	}

	s.TotalProjects = len(ds.Rows)
	s.TotalContractors = len(contractors)
	s.TotalProvinces = len(provinces)
	s.GlobalAvgDelay = metrics.Mean(delays)
	s.Meta.Groups = 1
	return s, nil
}

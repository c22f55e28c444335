package export

import (
	"fmt"

	"github.com/vinodismyname/floodreport/internal/metrics"
	"github.com/vinodismyname/floodreport/internal/reports"
)

// Table is a report flattened to a fixed column order. Cells hold int,
// float64 or string values.
type Table struct {
	Name    string
	Title   string
	Headers []string
	Rows    [][]any
}

// Records renders every cell as text: floats with exactly two decimals,
// integers as integers.
func (t Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, cell := range row {
			rec[j] = formatCell(cell)
		}
		out[i] = rec
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(int64(x))
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat always emits two decimals so 13.4 appears as 13.40.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", metrics.Round2(metrics.Finite(f)))
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// EfficiencyTable flattens the regional efficiency report.
func EfficiencyTable(rep reports.EfficiencyReport) Table {
	t := Table{
		Name:    reports.NameEfficiency,
		Title:   "Report 1: Regional Flood Mitigation Efficiency Summary",
		Headers: []string{"Region", "MainIsland", "TotalBudget", "MedianSavings", "AvgDelay", "HighDelayPct", "EfficiencyScore"},
		Rows:    make([][]any, 0, len(rep.Rows)),
	}
	for _, r := range rep.Rows {
		t.Rows = append(t.Rows, []any{r.Region, r.MainIsland, r.TotalBudget, r.MedianSavings, r.AvgDelay, r.HighDelayPct, r.EfficiencyScore})
	}
	return t
}

// ContractorTable flattens the contractor ranking report.
func ContractorTable(rep reports.ContractorReport) Table {
	t := Table{
		Name:    reports.NameContractors,
		Title:   "Report 2: Top Contractors Performance Ranking",
		Headers: []string{"Rank", "Contractor", "TotalCost", "NumProjects", "AvgDelay", "TotalSavings", "ReliabilityIndex", "RiskFlag"},
		Rows:    make([][]any, 0, len(rep.Rows)),
	}
	for _, r := range rep.Rows {
		t.Rows = append(t.Rows, []any{r.Rank, r.Contractor, r.TotalCost, r.NumProjects, r.AvgDelay, r.TotalSavings, r.ReliabilityIndex, r.RiskFlag})
	}
	return t
}

// TrendTable flattens the project-type trend report.
func TrendTable(rep reports.TrendReport) Table {
	t := Table{
		Name:    reports.NameTrends,
		Title:   "Report 3: Annual Project Type Cost Overrun Trends",
		Headers: []string{"FundingYear", "TypeOfWork", "TotalProjects", "AvgSavings", "OverrunRate", "YoYChange"},
		Rows:    make([][]any, 0, len(rep.Rows)),
	}
	for _, r := range rep.Rows {
		t.Rows = append(t.Rows, []any{r.FundingYear, r.TypeOfWork, r.TotalProjects, r.AvgSavings, r.OverrunRate, r.YoYChange})
	}
	return t
}

// SummaryTable lays the summary out as metric/value pairs.
func SummaryTable(s reports.Summary) Table {
	return Table{
		Name:    reports.NameSummary,
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"TotalProjects", s.TotalProjects},
			{"TotalContractors", s.TotalContractors},
			{"TotalProvinces", s.TotalProvinces},
			{"GlobalAvgDelay", s.GlobalAvgDelay},
			{"TotalSavings", s.TotalSavings},
		},
	}
}

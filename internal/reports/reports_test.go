package reports

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/floodreport/internal/dataset"
)

var projectHeaders = []string{
	"Region", "MainIsland", "Province", "Contractor", "FundingYear", "TypeOfWork",
	"ApprovedBudgetForContract", "ContractCost", "StartDate", "ActualCompletionDate",
}

// proj builds a row in projectHeaders order.
func proj(region, island, province, contractor, year, work string, budget, cost float64, start, end string) dataset.Record {
	return dataset.Record{
		region, island, province, contractor, year, work,
		fmt.Sprintf("%.2f", budget), fmt.Sprintf("%.2f", cost), start, end,
	}
}

func newDataset(rows ...dataset.Record) *dataset.Dataset {
	ds := dataset.New(projectHeaders, rows, len(rows))
	ds.Window = dataset.Window{DateColumn: "StartDate", FromYear: 2021, ToYear: 2023}
	return ds
}

func TestParseZeroDelayPolicy(t *testing.T) {
	p, err := ParseZeroDelayPolicy("")
	require.NoError(t, err)
	require.Equal(t, ZeroDelayScoresZero, p)

	p, err = ParseZeroDelayPolicy(" Savings ")
	require.NoError(t, err)
	require.Equal(t, ZeroDelayRewardsSavings, p)
	require.Equal(t, "savings", p.String())

	_, err = ParseZeroDelayPolicy("bonus")
	require.Error(t, err)
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{MinProjects: 2}.withDefaults()
	d := DefaultOptions()
	require.Equal(t, 2, o.MinProjects)
	require.Equal(t, d.TopContractors, o.TopContractors)
	require.Equal(t, d.HighDelayDays, o.HighDelayDays)
	require.Equal(t, d.Epsilon, o.Epsilon)
}

func TestLogWarnings_MissingColumns(t *testing.T) {
	ds := dataset.New([]string{"Region"}, []dataset.Record{{"NCR"}}, 1)
	rep, err := Efficiency(context.Background(), ds, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, rep.Warnings)
	require.Len(t, rep.Rows, 1)
	require.Equal(t, 100.0, rep.Rows[0].EfficiencyScore)
}

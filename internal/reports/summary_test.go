package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	ds := newDataset(
		proj("R", "L", "Cebu", "Alpha", "2021", "Dike", 100, 80, "2021-01-01", "2021-01-31"),
		proj("R", "L", "Cebu", "Beta", "2021", "Dike", 50, 60, "2021-01-01", ""),
		proj("R", "L", "", "", "2021", "Dike", 10, 10, "2021-01-01", "2021-01-01"),
	)
	s, err := Summarize(context.Background(), ds)
	require.NoError(t, err)
	require.Equal(t, 3, s.TotalProjects)
	require.Equal(t, 2, s.TotalContractors)
	require.Equal(t, 1, s.TotalProvinces)
	require.InDelta(t, 10.0, s.GlobalAvgDelay, 1e-9)
	require.InDelta(t, 10.0, s.TotalSavings, 1e-9)
	require.Equal(t, 1, s.Meta.Groups)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(context.Background(), newDataset())
	require.ErrorIs(t, err, ErrEmptyGroupSet)
}

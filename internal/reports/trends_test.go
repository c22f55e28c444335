package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYoYChange(t *testing.T) {
	require.InDelta(t, 50.0, YoYChange(150, 100, 1e-9), 1e-9)
	require.InDelta(t, -25.0, YoYChange(-125, -100, 1e-9), 1e-9)
	require.Equal(t, 0.0, YoYChange(10, 0, 1e-9))
}

func TestTrends_Baseline(t *testing.T) {
	ds := newDataset(
		proj("R", "L", "P", "C", "2022", "Dike", 250, 100, "2022-01-01", "2022-01-02"),
		proj("R", "L", "P", "C", "2021", "Dike", 200, 100, "2021-01-01", "2021-01-02"),
		proj("R", "L", "P", "C", "2021", "Seawall", 100, 100, "2021-01-01", "2021-01-02"),
		proj("R", "L", "P", "C", "2022", "Seawall", 110, 100, "2022-01-01", "2022-01-02"),
		proj("R", "L", "P", "C", "2022", "Drainage", 100, 120, "2022-01-01", "2022-01-02"),
	)
	rep, err := Trends(context.Background(), ds, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "2021", rep.Meta.BaselineYear)
	require.Len(t, rep.Rows, 5)

	byKey := map[string]TrendRow{}
	for _, r := range rep.Rows {
		byKey[r.FundingYear+"/"+r.TypeOfWork] = r
	}
	require.Equal(t, 0.0, byKey["2021/Dike"].YoYChange, "baseline year")
	require.InDelta(t, 50.0, byKey["2022/Dike"].YoYChange, 1e-9)
	require.Equal(t, 0.0, byKey["2022/Seawall"].YoYChange, "zero baseline")
	require.Equal(t, 0.0, byKey["2022/Drainage"].YoYChange, "no baseline")
	require.InDelta(t, 100.0, byKey["2022/Drainage"].OverrunRate, 1e-9)
	require.Equal(t, 0.0, byKey["2022/Dike"].OverrunRate)

	// Year ascending, then average savings descending.
	require.Equal(t, "2021", rep.Rows[0].FundingYear)
	require.Equal(t, "Dike", rep.Rows[0].TypeOfWork)
	require.Equal(t, "2022", rep.Rows[2].FundingYear)
	require.Equal(t, "Dike", rep.Rows[2].TypeOfWork)
	require.Equal(t, "Drainage", rep.Rows[4].TypeOfWork)
}

func TestYearLess(t *testing.T) {
	require.True(t, yearLess("999", "2021"))
	require.True(t, yearLess("2021", "unknown"))
	require.False(t, yearLess("unknown", "2021"))
	require.True(t, yearLess("", "x"))
}

func TestTrends_Empty(t *testing.T) {
	_, err := Trends(context.Background(), newDataset(), DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyGroupSet)
}

package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/floodreport/internal/dataset"
)

func TestGroupBy_PartitionsEveryRowOnce(t *testing.T) {
	rows := []dataset.Record{
		{"NCR", "Luzon", "10"},
		{"R7", "Visayas", "20"},
		{"NCR", "Luzon", "30"},
		{"NCR", "Mindanao", "40"},
		{"", "", "50"},
	}
	p := GroupBy(rows,
		func(r dataset.Record) Pair { return Pair{A: r.Field(0), B: r.Field(1)} },
		func(r dataset.Record) float64 { v, _ := strconv.ParseFloat(r.Field(2), 64); return v },
	)

	require.Equal(t, 4, p.Len())
	require.Equal(t, len(rows), p.Count())

	total := 0
	for _, k := range p.Keys(PairLess) {
		total += len(p.Members(k))
	}
	require.Equal(t, len(rows), total)
	require.Equal(t, []float64{10, 30}, p.Members(Pair{A: "NCR", B: "Luzon"}))
	require.Equal(t, Pair{}, p.Keys(PairLess)[0], "empty key is a group of its own")
}

func TestReduce_KeyOrderAndSkip(t *testing.T) {
	rows := []dataset.Record{{"b"}, {"a"}, {"c"}, {"a"}}
	p := GroupBy(rows, func(r dataset.Record) string { return r.Field(0) }, func(dataset.Record) float64 { return 1 })

	got := Reduce(p, StringLess, func(k string, m []float64) (string, bool) {
		if k == "c" {
			return "", false
		}
		return k + strconv.Itoa(len(m)), true
	})
	require.Equal(t, []string{"a2", "b1"}, got)
}

func TestColumn(t *testing.T) {
	type m struct{ x float64 }
	require.Equal(t, []float64{1, 2}, Column([]m{{1}, {2}}, func(v m) float64 { return v.x }))
}

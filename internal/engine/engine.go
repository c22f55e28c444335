// Package engine partitions dataset rows by a group key in one linear pass.
// Consumers reduce each partition independently and re-sort the results.
package engine

import (
	"sort"

	"github.com/vinodismyname/floodreport/internal/dataset"
)

// Pair is a two-dimensional group key.
type Pair struct {
	A string
	B string
}

// Partition maps each group key to the metric tuples of its member rows.
type Partition[K comparable, M any] struct {
	groups map[K][]M
	rows   int
}

// GroupBy assigns every row to exactly one group via key and derives its
// metric tuple via metric.
func GroupBy[K comparable, M any](rows []dataset.Record, key func(dataset.Record) K, metric func(dataset.Record) M) Partition[K, M] {
	p := Partition[K, M]{groups: make(map[K][]M)}
	for _, rec := range rows {
		k := key(rec)
		p.groups[k] = append(p.groups[k], metric(rec))
		p.rows++
	}
	return p
}

// Len returns the number of groups.
func (p Partition[K, M]) Len() int { return len(p.groups) }

// Count returns the number of rows across all groups.
func (p Partition[K, M]) Count() int { return p.rows }

// Members returns the metric tuples of group k.
func (p Partition[K, M]) Members(k K) []M { return p.groups[k] }

// Keys returns the group keys ordered by less.
func (p Partition[K, M]) Keys(less func(a, b K) bool) []K {
	keys := make([]K, 0, len(p.groups))
	for k := range p.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

// Reduce applies fn to each group in key order and collects the non-skipped results.
func Reduce[K comparable, M any, R any](p Partition[K, M], less func(a, b K) bool, fn func(k K, members []M) (R, bool)) []R {
	keys := p.Keys(less)
	out := make([]R, 0, len(keys))
	for _, k := range keys {
		if r, ok := fn(k, p.groups[k]); ok {
			out = append(out, r)
		}
	}
	return out
}

// Column projects one numeric field out of a member list.
func Column[M any](members []M, get func(M) float64) []float64 {
	out := make([]float64, len(members))
	for i, m := range members {
		out[i] = get(m)
	}
	return out
}

// PairLess orders pairs by A then B.
func PairLess(a, b Pair) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}

// StringLess orders plain string keys.
func StringLess(a, b string) bool { return a < b }

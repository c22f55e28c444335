package reports

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingSink records delivered reports and optionally fails.
type recordingSink struct {
	fail    map[string]error
	got     []string
	flushed bool
}

func (s *recordingSink) deliver(name string) error {
	s.got = append(s.got, name)
	return s.fail[name]
}

func (s *recordingSink) Efficiency(context.Context, EfficiencyReport) error {
	return s.deliver(NameEfficiency)
}
func (s *recordingSink) Contractors(context.Context, ContractorReport) error {
	return s.deliver(NameContractors)
}
func (s *recordingSink) Trends(context.Context, TrendReport) error { return s.deliver(NameTrends) }
func (s *recordingSink) Summary(context.Context, Summary) error    { return s.deliver(NameSummary) }
func (s *recordingSink) Flush(context.Context) error {
	s.flushed = true
	return nil
}

type countingObserver struct {
	mu    sync.Mutex
	names []string
}

func (o *countingObserver) ReportDone(_ context.Context, name string, _ int, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func TestRunner_UnknownReport(t *testing.T) {
	r := &Runner{Options: DefaultOptions()}
	_, err := r.Run(context.Background(), newDataset(), []string{"efficiency", "bogus"})
	require.ErrorIs(t, err, ErrUnknownReport)
}

func TestRunner_PresentationOrder(t *testing.T) {
	ds := newDataset(
		proj("R", "L", "P", "C", "2021", "Dike", 100, 80, "2021-01-01", "2021-01-31"),
	)
	display, export := &recordingSink{}, &recordingSink{}
	obs := &countingObserver{}
	r := &Runner{Options: Options{MinProjects: 1}, Display: display, Export: export, Observer: obs}

	res, err := r.Run(context.Background(), ds, []string{NameSummary, NameEfficiency})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, []string{NameEfficiency, NameSummary}, export.got)
	require.Equal(t, []string{NameEfficiency, NameSummary}, display.got)
	require.Equal(t, []string{NameEfficiency, NameSummary}, obs.names)
	require.True(t, export.flushed)
	require.NotNil(t, res.Efficiency)
	require.Nil(t, res.Trends)
}

func TestRunner_ExportFailuresJoined(t *testing.T) {
	ds := newDataset(
		proj("R", "L", "P", "C", "2021", "Dike", 100, 80, "2021-01-01", "2021-01-31"),
	)
	errA, errB := errors.New("disk full"), errors.New("read-only")
	export := &recordingSink{fail: map[string]error{NameEfficiency: errA, NameTrends: errB}}
	display := &recordingSink{fail: map[string]error{NameSummary: errors.New("ignored")}}
	r := &Runner{Options: Options{MinProjects: 1}, Display: display, Export: export}

	_, err := r.Run(context.Background(), ds, nil)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.Equal(t, Names, export.got, "later reports still run")
}

func TestRunner_EmptyNotice(t *testing.T) {
	var out bytes.Buffer
	export := &recordingSink{}
	r := &Runner{Options: DefaultOptions(), Out: &out, Export: export}

	_, err := r.Run(context.Background(), newDataset(), nil)
	require.NoError(t, err)
	require.Empty(t, export.got)
	require.Contains(t, out.String(), "efficiency: No records to report on (after filtering).")
	require.Contains(t, out.String(), "summary: No records to report on (after filtering).")
	require.NotContains(t, out.String(), "Warning:")
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Options: DefaultOptions()}
	_, err := r.Run(ctx, newDataset(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

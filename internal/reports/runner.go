package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/internal/dataset"
)

// ErrUnknownReport is returned for a selection naming no known report.
var ErrUnknownReport = errors.New("reports: unknown report")

// Sink consumes finished reports. Console renderers and file exporters both
// implement it.
type Sink interface {
	Efficiency(ctx context.Context, rep EfficiencyReport) error
	Contractors(ctx context.Context, rep ContractorReport) error
	Trends(ctx context.Context, rep TrendReport) error
	Summary(ctx context.Context, s Summary) error
}

// Flusher is implemented by sinks that buffer output until every report has run.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Observer is notified once per computed report.
type Observer interface {
	ReportDone(ctx context.Context, name string, groups int, elapsed time.Duration, err error)
}

// Result collects the reports computed by a run. Skipped reports stay nil.
type Result struct {
	RunID       string
	Efficiency  *EfficiencyReport
	Contractors *ContractorReport
	Trends      *TrendReport
	Summary     *Summary
}

// Runner computes the selected reports over one dataset, then hands each to
// the display sink and the export sink in turn.
type Runner struct {
	Options  Options
	Out      io.Writer
	Display  Sink
	Export   Sink
	Observer Observer
}

// Validate checks a report selection. An empty selection means all reports.
func Validate(names []string) error {
	for _, n := range names {
		if !slices.Contains(Names, n) {
			return fmt.Errorf("%w: %q", ErrUnknownReport, n)
		}
	}
	return nil
}

// Run executes the selected reports in presentation order. A failing export
// does not stop later reports; all export failures are returned joined.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, names []string) (Result, error) {
	if err := Validate(names); err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		names = Names
	}

	res := Result{RunID: uuid.NewString()}
	logger := zerolog.Ctx(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Strs("reports", names).Int("rows", len(ds.Rows)).Msg("report run started")

	var errs []error
	for _, name := range Names {
		if !slices.Contains(names, name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.runOne(ctx, ds, name, &res); err != nil {
			logger.Error().Err(err).Str("report", name).Msg("report failed")
			errs = append(errs, err)
		}
	}

	if f, ok := r.Export.(Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			logger.Error().Err(err).Msg("report flush failed")
			errs = append(errs, err)
		}
	}
	logger.Info().Int("failures", len(errs)).Msg("report run finished")
	return res, errors.Join(errs...)
}

func (r *Runner) runOne(ctx context.Context, ds *dataset.Dataset, name string, res *Result) error {
	start := time.Now()
	var (
		groups   int
		warnings []string
		err      error
		deliver  func(Sink) error
	)
	switch name {
	case NameEfficiency:
		var rep EfficiencyReport
		rep, err = Efficiency(ctx, ds, r.Options)
		res.Efficiency, groups, warnings = &rep, len(rep.Rows), rep.Warnings
		deliver = func(s Sink) error { return s.Efficiency(ctx, rep) }
	case NameContractors:
		var rep ContractorReport
		rep, err = Contractors(ctx, ds, r.Options)
		res.Contractors, groups, warnings = &rep, len(rep.Rows), rep.Warnings
		deliver = func(s Sink) error { return s.Contractors(ctx, rep) }
	case NameTrends:
		var rep TrendReport
		rep, err = Trends(ctx, ds, r.Options)
		res.Trends, groups, warnings = &rep, len(rep.Rows), rep.Warnings
		deliver = func(s Sink) error { return s.Trends(ctx, rep) }
	case NameSummary:
		var s Summary
		s, err = Summarize(ctx, ds)
		res.Summary, groups, warnings = &s, s.Meta.Groups, s.Warnings
		deliver = func(k Sink) error { return k.Summary(ctx, s) }
	}
	if r.Observer != nil {
		r.Observer.ReportDone(ctx, name, groups, time.Since(start), err)
	}

	for _, w := range warnings {
		r.printf("Warning: %s\n", w)
	}
	if errors.Is(err, ErrEmptyGroupSet) {
		r.printf("%s: No records to report on (after filtering).\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	if r.Display != nil {
		if err := deliver(r.Display); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("report", name).Msg("report display failed")
		}
	}
	if r.Export != nil {
		return deliver(r.Export)
	}
	return nil
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}

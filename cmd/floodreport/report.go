package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/export"
	"github.com/vinodismyname/floodreport/internal/reports"
	"github.com/vinodismyname/floodreport/internal/telemetry"
)

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the efficiency, contractor, trend and summary reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := a.setup(cmd)
			if err != nil {
				return err
			}
			return a.runReports(ctx, cfg, cfg.SelectedReports())
		},
	}
	cmd.Flags().String("only", "", "Comma-separated reports to run: efficiency,contractors,trends,summary")
	cmd.Flags().Bool("xlsx", false, "Also write all reports to one workbook")
	_ = a.v.BindPFlag("reports", cmd.Flags().Lookup("only"))
	_ = a.v.BindPFlag("export.workbook", cmd.Flags().Lookup("xlsx"))
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print and save the dataset summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := a.setup(cmd)
			if err != nil {
				return err
			}
			return a.runReports(ctx, cfg, []string{reports.NameSummary})
		},
	}
	return cmd
}

// runReports loads the configured dataset and runs names over it.
func (a *app) runReports(ctx context.Context, cfg *config.Config, names []string) error {
	if err := reports.Validate(names); err != nil {
		return err
	}
	ds, err := loadDataset(ctx, a.stdout, cfg)
	if err != nil {
		return err
	}
	return generate(ctx, a.stdout, cfg, ds, names)
}

func loadDataset(ctx context.Context, out io.Writer, cfg *config.Config) (*dataset.Dataset, error) {
	ds, err := dataset.Load(ctx, cfg.Input, datasetOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Input, err)
	}
	fmt.Fprintf(out, "Processing dataset... (%d rows loaded, %d filtered for %s)\n", ds.TotalCount, ds.FilteredCount, ds.Window.Label())
	return ds, nil
}

func generate(ctx context.Context, out io.Writer, cfg *config.Config, ds *dataset.Dataset, names []string) error {
	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}
	console := export.NewConsole(out)
	console.OutDir = cfg.OutDir

	runner := &reports.Runner{
		Options:  opts,
		Out:      out,
		Display:  console,
		Export:   export.New(cfg.OutDir, cfg.Export.Workbook),
		Observer: telemetry.NewHooks(*zerolog.Ctx(ctx)),
	}
	if _, err := runner.Run(ctx, ds, names); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}

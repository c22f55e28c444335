package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/reports"
	"github.com/vinodismyname/floodreport/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		// stderr keeps stdout clean for tables and the stdio transport
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           version.Name,
		Short:         "Flood control project analytics: efficiency, contractor ranking and cost trends",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version(),
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("input", config.DefaultInputPath, "Dataset path (.csv, .xlsx, .xlsm)")
	root.PersistentFlags().String("sheet", "", "Worksheet name for workbook inputs")
	root.PersistentFlags().String("out", config.DefaultOutputDir, "Directory for exported reports")
	root.PersistentFlags().Int("from", config.DefaultFromYear, "First year kept, inclusive")
	root.PersistentFlags().Int("to", config.DefaultToYear, "Last year kept, inclusive")
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("input", root.PersistentFlags().Lookup("input"))
	_ = a.v.BindPFlag("sheet", root.PersistentFlags().Lookup("sheet"))
	_ = a.v.BindPFlag("out", root.PersistentFlags().Lookup("out"))
	_ = a.v.BindPFlag("window.from", root.PersistentFlags().Lookup("from"))
	_ = a.v.BindPFlag("window.to", root.PersistentFlags().Lookup("to"))

	root.AddCommand(a.reportCmd())
	root.AddCommand(a.summaryCmd())
	root.AddCommand(a.interactiveCmd())
	root.AddCommand(a.serveCmd())
	return root
}

// setup resolves configuration and returns a context carrying the logger.
func (a *app) setup(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(a.stderr, cfg.Logging.Level)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cfg, logger.WithContext(ctx), nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "floodreport").Logger()
}

func datasetOptions(cfg *config.Config) dataset.Options {
	return dataset.Options{
		Sheet: cfg.Sheet,
		Window: dataset.Window{
			DateColumn: cfg.Window.DateColumn,
			FromYear:   cfg.Window.From,
			ToYear:     cfg.Window.To,
		},
	}
}

func reportOptions(cfg *config.Config) (reports.Options, error) {
	policy, err := reports.ParseZeroDelayPolicy(cfg.Efficiency.ZeroDelayPolicy)
	if err != nil {
		return reports.Options{}, err
	}
	opts := reports.DefaultOptions()
	opts.ZeroDelay = policy
	opts.HighDelayDays = cfg.Efficiency.HighDelayDays
	opts.MinProjects = cfg.Contractors.MinProjects
	opts.TopContractors = cfg.Contractors.Top
	opts.ReliabilityHorizon = cfg.Contractors.ReliabilityHorizon
	opts.HighRiskBelow = cfg.Contractors.HighRiskBelow
	return opts, nil
}

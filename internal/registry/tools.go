package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/reports"
	"github.com/vinodismyname/floodreport/internal/runtime"
	"github.com/vinodismyname/floodreport/internal/security"
	"github.com/vinodismyname/floodreport/pkg/mcperr"
	"github.com/vinodismyname/floodreport/pkg/pagination"
	"github.com/vinodismyname/floodreport/pkg/validation"
)

// --- Input / Output Schemas (typed for discovery) ---

// LoadDatasetInput defines parameters for loading a dataset.
type LoadDatasetInput struct {
	Path       string `json:"path" validate:"required,dataset_ext" jsonschema_description:"Allowed path to a .csv, .xlsx or .xlsm dataset"`
	Sheet      string `json:"sheet,omitempty" jsonschema_description:"Worksheet name for workbooks; defaults to the first sheet"`
	DateColumn string `json:"date_column,omitempty" jsonschema_description:"Column whose leading year is filtered (default StartDate)"`
	FromYear   int    `json:"from_year,omitempty" validate:"omitempty,min=1900,max=9999" jsonschema_description:"First year kept, inclusive"`
	ToYear     int    `json:"to_year,omitempty" validate:"omitempty,min=1900,max=9999" jsonschema_description:"Last year kept, inclusive"`
}

// LoadDatasetOutput documents the response fields for load_dataset.
type LoadDatasetOutput struct {
	DatasetID     string         `json:"dataset_id" jsonschema_description:"Server-assigned dataset handle ID"`
	Source        string         `json:"source"`
	Headers       []string       `json:"headers"`
	RowsLoaded    int            `json:"rows_loaded"`
	RowsFiltered  int            `json:"rows_filtered"`
	Window        dataset.Window `json:"window"`
	MaxCachedSets int            `json:"max_cached_datasets"`
}

// DatasetInput identifies a cached dataset.
type DatasetInput struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID from load_dataset"`
}

// PageInput holds the shared paging parameters of report tools.
type PageInput struct {
	PageSize int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=500" jsonschema_description:"Max rows per page; all rows when omitted"`
	Cursor   string `json:"cursor,omitempty" jsonschema_description:"nextCursor from a previous page; takes precedence over page_size"`
}

// EfficiencyInput defines parameters for regional_efficiency.
type EfficiencyInput struct {
	DatasetID       string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID from load_dataset"`
	ZeroDelayPolicy string `json:"zero_delay_policy,omitempty" validate:"omitempty,oneof=zero savings" jsonschema_description:"Raw score for groups with zero average delay: zero or savings"`
	PageInput
}

// ContractorInput defines parameters for contractor_ranking.
type ContractorInput struct {
	DatasetID   string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID from load_dataset"`
	MinProjects int    `json:"min_projects,omitempty" validate:"omitempty,min=1" jsonschema_description:"Minimum projects per contractor (default 5)"`
	Top         int    `json:"top,omitempty" validate:"omitempty,min=1,max=100" jsonschema_description:"Number of ranked contractors returned (default 15)"`
	PageInput
}

// TrendInput defines parameters for project_type_trends.
type TrendInput struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID from load_dataset"`
	PageInput
}

// ReportOutput is one page of a report.
type ReportOutput[R any] struct {
	Rows     []R             `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
	Meta     reports.Meta    `json:"meta"`
	Page     pagination.Meta `json:"page"`
}

// SummaryOutput wraps the summary with its diagnostics.
type SummaryOutput struct {
	reports.Summary
	Warnings []string     `json:"warnings,omitempty"`
	Meta     reports.Meta `json:"meta"`
}

// ReleaseOutput documents release_dataset.
type ReleaseOutput struct {
	Success bool `json:"success" jsonschema_description:"True when the handle was released"`
}

// Service binds report tools to a dataset cache and default options.
type Service struct {
	Cache   *dataset.Cache
	Options reports.Options
	Window  dataset.Window
	Sheet   string
}

// RegisterReportTools defines the dataset and report tools on s.
func RegisterReportTools(s *server.MCPServer, reg *Registry, svc *Service, limits runtime.Limits) {
	load := mcp.NewTool(
		"load_dataset",
		mcp.WithDescription("Load a flood control project dataset, filter it to a funding year window and return a handle for the report tools. Reloading the same file with the same window returns the cached handle."),
		mcp.WithInputSchema[LoadDatasetInput](),
		mcp.WithOutputSchema[LoadDatasetOutput](),
	)
	s.AddTool(load, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in LoadDatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		opts := svc.loadOptions(in)
		if opts.Window.ToYear < opts.Window.FromYear {
			return mcperr.New(mcperr.Validation, "to_year must be >= from_year"), nil
		}
		entry, err := svc.Cache.Open(ctx, in.Path, opts)
		if err != nil {
			return toolError(ctx, "load_dataset", err, mcperr.LoadFailed), nil
		}
		ds := entry.Dataset
		out := LoadDatasetOutput{
			DatasetID:     entry.ID,
			Source:        ds.Source,
			Headers:       ds.Headers,
			RowsLoaded:    ds.TotalCount,
			RowsFiltered:  ds.FilteredCount,
			Window:        ds.Window,
			MaxCachedSets: limits.MaxCachedDatasets,
		}
		summary := fmt.Sprintf("dataset_id=%s rows_loaded=%d rows_filtered=%d window=%s", out.DatasetID, out.RowsLoaded, out.RowsFiltered, ds.Window.Label())
		return mcp.NewToolResultStructured(out, summary), nil
	}))
	reg.Register(load)

	release := mcp.NewTool(
		"release_dataset",
		mcp.WithDescription("Release a cached dataset handle and free its slot"),
		mcp.WithInputSchema[DatasetInput](),
		mcp.WithOutputSchema[ReleaseOutput](),
	)
	s.AddTool(release, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if err := svc.Cache.Release(in.DatasetID); err != nil {
			return toolError(ctx, "release_dataset", err, mcperr.InvalidHandle), nil
		}
		return mcp.NewToolResultStructured(ReleaseOutput{Success: true}, "released"), nil
	}))
	reg.Register(release)

	eff := mcp.NewTool(
		"regional_efficiency",
		mcp.WithDescription("Score each (Region, MainIsland) group by median savings per day of average delay, min-max normalized to 0-100 and sorted best first."),
		mcp.WithInputSchema[EfficiencyInput](),
		mcp.WithOutputSchema[ReportOutput[reports.EfficiencyRow]](),
	)
	s.AddTool(eff, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in EfficiencyInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		ds, res := svc.dataset(in.DatasetID)
		if res != nil {
			return res, nil
		}
		opts, err := efficiencyOptions(svc.Options, in)
		if err != nil {
			return mcperr.New(mcperr.Validation, err.Error()), nil
		}
		rep, err := reports.Efficiency(ctx, ds, opts)
		if err != nil {
			return toolError(ctx, "regional_efficiency", err, mcperr.AnalysisFailed), nil
		}
		return pageResult(ctx, "regional_efficiency", in.DatasetID, reports.NameEfficiency, in.PageInput, rep.Rows, rep.Warnings, rep.Meta)
	}))
	reg.Register(eff)

	ranking := mcp.NewTool(
		"contractor_ranking",
		mcp.WithDescription("Rank contractors with enough projects by total contract cost, with reliability index and risk flag."),
		mcp.WithInputSchema[ContractorInput](),
		mcp.WithOutputSchema[ReportOutput[reports.ContractorRow]](),
	)
	s.AddTool(ranking, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ContractorInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		ds, res := svc.dataset(in.DatasetID)
		if res != nil {
			return res, nil
		}
		opts := svc.Options
		if in.MinProjects > 0 {
			opts.MinProjects = in.MinProjects
		}
		if in.Top > 0 {
			opts.TopContractors = in.Top
		}
		rep, err := reports.Contractors(ctx, ds, opts)
		if err != nil {
			return toolError(ctx, "contractor_ranking", err, mcperr.AnalysisFailed), nil
		}
		return pageResult(ctx, "contractor_ranking", in.DatasetID, reports.NameContractors, in.PageInput, rep.Rows, rep.Warnings, rep.Meta)
	}))
	reg.Register(ranking)

	trends := mcp.NewTool(
		"project_type_trends",
		mcp.WithDescription("Average savings and overrun rate per (FundingYear, TypeOfWork) with change relative to the earliest year."),
		mcp.WithInputSchema[TrendInput](),
		mcp.WithOutputSchema[ReportOutput[reports.TrendRow]](),
	)
	s.AddTool(trends, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in TrendInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		ds, res := svc.dataset(in.DatasetID)
		if res != nil {
			return res, nil
		}
		rep, err := reports.Trends(ctx, ds, svc.Options)
		if err != nil {
			return toolError(ctx, "project_type_trends", err, mcperr.AnalysisFailed), nil
		}
		return pageResult(ctx, "project_type_trends", in.DatasetID, reports.NameTrends, in.PageInput, rep.Rows, rep.Warnings, rep.Meta)
	}))
	reg.Register(trends)

	summary := mcp.NewTool(
		"dataset_summary",
		mcp.WithDescription("Totals across the filtered dataset: projects, distinct contractors and provinces, average delay and total savings."),
		mcp.WithInputSchema[DatasetInput](),
		mcp.WithOutputSchema[SummaryOutput](),
	)
	s.AddTool(summary, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		ds, res := svc.dataset(in.DatasetID)
		if res != nil {
			return res, nil
		}
		sum, err := reports.Summarize(ctx, ds)
		if err != nil {
			return toolError(ctx, "dataset_summary", err, mcperr.AnalysisFailed), nil
		}
		out := SummaryOutput{Summary: sum, Warnings: sum.Warnings, Meta: sum.Meta}
		return mcp.NewToolResultStructured(out, fmt.Sprintf("projects=%d contractors=%d provinces=%d", sum.TotalProjects, sum.TotalContractors, sum.TotalProvinces)), nil
	}))
	reg.Register(summary)
}

// pageResult slices rows per the paging input and wraps them as a structured result.
func pageResult[R any](ctx context.Context, tool, datasetID, report string, in PageInput, rows []R, warnings []string, meta reports.Meta) (*mcp.CallToolResult, error) {
	off, size := 0, in.PageSize
	if strings.TrimSpace(in.Cursor) != "" {
		c, err := pagination.Resume(in.Cursor, datasetID, report)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("tool", tool).Msg("invalid cursor")
			return mcperr.New(mcperr.CursorInvalid, err.Error()), nil
		}
		off, size = c.Off, c.Ps
	}
	page, pm, err := pagination.Page(rows, datasetID, report, off, size)
	if err != nil {
		return toolError(ctx, tool, err, mcperr.AnalysisFailed), nil
	}
	out := ReportOutput[R]{Rows: page, Warnings: warnings, Meta: meta, Page: pm}
	summary := fmt.Sprintf("rows=%d/%d offset=%d truncated=%v window=%s", pm.Returned, pm.Total, pm.Offset, pm.Truncated, meta.Window)
	return mcp.NewToolResultStructured(out, summary), nil
}

// efficiencyOptions applies the per-call overrides of regional_efficiency.
func efficiencyOptions(base reports.Options, in EfficiencyInput) (reports.Options, error) {
	if in.ZeroDelayPolicy == "" {
		return base, nil
	}
	policy, err := reports.ParseZeroDelayPolicy(in.ZeroDelayPolicy)
	if err != nil {
		return base, err
	}
	base.ZeroDelay = policy
	return base, nil
}

func (svc *Service) loadOptions(in LoadDatasetInput) dataset.Options {
	w := svc.Window
	if c := strings.TrimSpace(in.DateColumn); c != "" {
		w.DateColumn = c
	}
	if in.FromYear > 0 {
		w.FromYear = in.FromYear
	}
	if in.ToYear > 0 {
		w.ToYear = in.ToYear
	}
	sheet := svc.Sheet
	if in.Sheet != "" {
		sheet = in.Sheet
	}
	return dataset.Options{Window: w, Sheet: sheet}
}

func (svc *Service) dataset(id string) (*dataset.Dataset, *mcp.CallToolResult) {
	ds, ok := svc.Cache.Get(id)
	if !ok {
		return nil, mcperr.New(mcperr.InvalidHandle, "")
	}
	return ds, nil
}

// toolError logs err and converts it to a coded tool result.
func toolError(ctx context.Context, tool string, err error, fallback mcperr.Code) *mcp.CallToolResult {
	code := mcperr.Classify(err, fallback, security.Classify, classifyDomain)
	zerolog.Ctx(ctx).Warn().Err(err).Str("tool", tool).Str("code", string(code)).Msg("tool call failed")
	return mcperr.New(code, err.Error())
}

func classifyDomain(err error) (mcperr.Code, bool) {
	switch {
	case errors.Is(err, reports.ErrEmptyGroupSet):
		return mcperr.EmptyResult, true
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		return mcperr.UnsupportedFormat, true
	case errors.Is(err, dataset.ErrFilterColumnMissing), errors.Is(err, dataset.ErrNoHeader):
		return mcperr.LoadFailed, true
	case errors.Is(err, dataset.ErrHandleNotFound):
		return mcperr.InvalidHandle, true
	case errors.Is(err, runtime.ErrDatasetLimit):
		return mcperr.LimitExceeded, true
	case errors.Is(err, context.DeadlineExceeded):
		return mcperr.Timeout, true
	}
	return "", false
}

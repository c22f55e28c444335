package registry

import (
	"context"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vinodismyname/floodreport/internal/reports"
)

// reportTools maps report tool names to the report they compute.
var reportTools = map[string]string{
	"regional_efficiency": reports.NameEfficiency,
	"contractor_ranking":  reports.NameContractors,
	"project_type_trends": reports.NameTrends,
	"dataset_summary":     reports.NameSummary,
}

// ReportToolFilter hides report tools outside the configured selection.
// Dataset lifecycle tools are always listed.
type ReportToolFilter struct {
	selected []string
}

// NewReportToolFilter builds a filter for selected; empty selects every report.
func NewReportToolFilter(selected []string) *ReportToolFilter {
	return &ReportToolFilter{selected: selected}
}

// FilterTools implements server tool filtering semantics.
func (f *ReportToolFilter) FilterTools(_ context.Context, tools []mcp.Tool) []mcp.Tool {
	if len(f.selected) == 0 {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if report, ok := reportTools[t.Name]; ok && !slices.Contains(f.selected, report) {
			continue
		}
		out = append(out, t)
	}
	return out
}

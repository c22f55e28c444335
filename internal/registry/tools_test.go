package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/reports"
	"github.com/vinodismyname/floodreport/internal/runtime"
	"github.com/vinodismyname/floodreport/internal/security"
)

const projectsCSV = "Region,MainIsland,Province,Contractor,FundingYear,TypeOfWork,ApprovedBudgetForContract,ContractCost,StartDate,ActualCompletionDate\n" +
	"NCR,Luzon,Manila,Alpha,2021,Dike,110,100,2021-01-01,2021-04-11\n" +
	"NCR,Luzon,Manila,Alpha,2022,Dike,60,50,2022-01-01,2022-04-11\n" +
	"R7,Visayas,Cebu,Beta,2021,Seawall,130,100,2021-01-01,2021-04-11\n" +
	"R8,Visayas,Leyte,Gamma,2022,Drainage,90,100,2022-02-01,2022-02-11\n" +
	"R9,Mindanao,Zambo,Gamma,2019,Drainage,90,100,2019-02-01,2019-02-11\n"

// toolResult is the wire shape of a tools/call result.
type toolResult struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Structured json.RawMessage `json:"structuredContent"`
	IsError    bool            `json:"isError"`
}

type fixture struct {
	srv   *server.MCPServer
	dir   string
	cache *dataset.Cache
	seq   int
}

func newFixture(t *testing.T, maxDatasets int) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.csv"), []byte(projectsCSV), 0o644))

	sec, err := security.NewManager([]string{dir}, nil)
	require.NoError(t, err)
	limits := runtime.NewLimits(4, maxDatasets)
	ctrl := runtime.NewController(limits)
	cache := dataset.NewCache(time.Minute, time.Minute, ctrl, sec, nil)
	t.Cleanup(func() { _ = cache.Close(context.Background()) })

	srv := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(true))
	svc := &Service{
		Cache:   cache,
		Options: reports.Options{MinProjects: 1},
		Window:  dataset.Window{DateColumn: "StartDate", FromYear: 2021, ToYear: 2023},
	}
	RegisterReportTools(srv, New(), svc, limits)
	return &fixture{srv: srv, dir: dir, cache: cache}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) toolResult {
	t.Helper()
	f.seq++
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      f.seq,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	resp := f.srv.HandleMessage(context.Background(), msg)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var envelope struct {
		Result toolResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	return envelope.Result
}

func (f *fixture) load(t *testing.T) string {
	t.Helper()
	res := f.call(t, "load_dataset", map[string]any{"path": filepath.Join(f.dir, "projects.csv")})
	require.False(t, res.IsError, errorText(res))
	var out LoadDatasetOutput
	require.NoError(t, json.Unmarshal(res.Structured, &out))
	require.Equal(t, 5, out.RowsLoaded)
	require.Equal(t, 4, out.RowsFiltered)
	return out.DatasetID
}

func errorText(res toolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	return res.Content[0].Text
}

func TestTools_LoadAndReport(t *testing.T) {
	f := newFixture(t, 2)
	id := f.load(t)
	require.Equal(t, id, f.load(t), "same file and window reuse the handle")

	res := f.call(t, "regional_efficiency", map[string]any{"dataset_id": id})
	require.False(t, res.IsError, errorText(res))
	var eff ReportOutput[reports.EfficiencyRow]
	require.NoError(t, json.Unmarshal(res.Structured, &eff))
	require.Len(t, eff.Rows, 3)
	require.Equal(t, 100.0, eff.Rows[0].EfficiencyScore)
	require.Equal(t, 3, eff.Page.Total)
	require.False(t, eff.Page.Truncated)

	res = f.call(t, "dataset_summary", map[string]any{"dataset_id": id})
	require.False(t, res.IsError, errorText(res))
	var sum SummaryOutput
	require.NoError(t, json.Unmarshal(res.Structured, &sum))
	require.Equal(t, 4, sum.TotalProjects)
	require.Equal(t, 3, sum.TotalContractors)
	require.Equal(t, "2021-2023", sum.Meta.Window)
}

func TestTools_Pagination(t *testing.T) {
	f := newFixture(t, 2)
	id := f.load(t)

	var seen []string
	args := map[string]any{"dataset_id": id, "page_size": 1}
	for i := 0; i < 10; i++ {
		res := f.call(t, "contractor_ranking", args)
		require.False(t, res.IsError, errorText(res))
		var page ReportOutput[reports.ContractorRow]
		require.NoError(t, json.Unmarshal(res.Structured, &page))
		require.Len(t, page.Rows, 1)
		seen = append(seen, page.Rows[0].Contractor)
		if !page.Page.Truncated {
			break
		}
		args = map[string]any{"dataset_id": id, "cursor": page.Page.NextCursor}
	}
	require.Len(t, seen, 3)
	require.ElementsMatch(t, []string{"Alpha", "Beta", "Gamma"}, seen)

	// A contractor cursor cannot resume the trends report.
	res := f.call(t, "contractor_ranking", map[string]any{"dataset_id": id, "page_size": 1})
	var page ReportOutput[reports.ContractorRow]
	require.NoError(t, json.Unmarshal(res.Structured, &page))
	res = f.call(t, "project_type_trends", map[string]any{"dataset_id": id, "cursor": page.Page.NextCursor})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "CURSOR_INVALID:"), errorText(res))
}

func TestTools_Errors(t *testing.T) {
	f := newFixture(t, 1)

	res := f.call(t, "regional_efficiency", map[string]any{"dataset_id": "missing"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "INVALID_HANDLE:"), errorText(res))

	outside := filepath.Join(t.TempDir(), "elsewhere.csv")
	require.NoError(t, os.WriteFile(outside, []byte(projectsCSV), 0o644))
	res = f.call(t, "load_dataset", map[string]any{"path": outside})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "PERMISSION_DENIED:"), errorText(res))

	res = f.call(t, "load_dataset", map[string]any{"path": "projects.txt"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "VALIDATION:"), errorText(res))

	res = f.call(t, "load_dataset", map[string]any{"path": filepath.Join(f.dir, "projects.csv"), "from_year": 2023, "to_year": 2022})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "VALIDATION:"), errorText(res))

	id := f.load(t)
	// The only dataset slot is taken by id.
	res = f.call(t, "load_dataset", map[string]any{"path": filepath.Join(f.dir, "projects.csv"), "from_year": 2019})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "LIMIT_EXCEEDED:"), errorText(res))

	res = f.call(t, "release_dataset", map[string]any{"dataset_id": id})
	require.False(t, res.IsError, errorText(res))
	res = f.call(t, "release_dataset", map[string]any{"dataset_id": id})
	require.True(t, strings.HasPrefix(errorText(res), "INVALID_HANDLE:"), errorText(res))
}

func TestEfficiencyOptions(t *testing.T) {
	base := reports.DefaultOptions()

	opts, err := efficiencyOptions(base, EfficiencyInput{})
	require.NoError(t, err)
	require.Equal(t, base, opts)

	opts, err = efficiencyOptions(base, EfficiencyInput{ZeroDelayPolicy: "savings"})
	require.NoError(t, err)
	require.Equal(t, reports.ZeroDelayRewardsSavings, opts.ZeroDelay)

	opts, err = efficiencyOptions(base, EfficiencyInput{ZeroDelayPolicy: "bonus"})
	require.Error(t, err)
	require.Equal(t, base, opts)
}

func TestTools_InvalidZeroDelayPolicy(t *testing.T) {
	f := newFixture(t, 1)
	id := f.load(t)
	res := f.call(t, "regional_efficiency", map[string]any{"dataset_id": id, "zero_delay_policy": "bonus"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "VALIDATION:"), errorText(res))
}

func TestTools_EmptyResult(t *testing.T) {
	f := newFixture(t, 1)
	res := f.call(t, "load_dataset", map[string]any{"path": filepath.Join(f.dir, "projects.csv"), "from_year": 2030, "to_year": 2031})
	require.False(t, res.IsError, errorText(res))
	var out LoadDatasetOutput
	require.NoError(t, json.Unmarshal(res.Structured, &out))
	require.Equal(t, 0, out.RowsFiltered)

	res = f.call(t, "project_type_trends", map[string]any{"dataset_id": out.DatasetID})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(errorText(res), "EMPTY_RESULT:"), errorText(res))
}

func TestReportToolFilter(t *testing.T) {
	var tools []mcp.Tool
	for _, n := range []string{"load_dataset", "release_dataset", "regional_efficiency", "contractor_ranking", "project_type_trends", "dataset_summary"} {
		tools = append(tools, mcp.NewTool(n))
	}

	all := NewReportToolFilter(nil).FilterTools(context.Background(), tools)
	require.Len(t, all, len(tools))

	got := NewReportToolFilter([]string{reports.NameTrends}).FilterTools(context.Background(), tools)
	var names []string
	for _, tl := range got {
		names = append(names, tl.Name)
	}
	require.Equal(t, []string{"load_dataset", "release_dataset", "project_type_trends"}, names)
}

func TestRegistry_SortedTools(t *testing.T) {
	reg := New()
	for _, n := range []string{"b", "c", "a"} {
		reg.Register(mcp.NewTool(n))
	}
	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", tools[0].Name)
	_, ok := reg.Get("c")
	require.True(t, ok)
	require.Positive(t, reg.ModelContextSize("gpt-4o"))
}

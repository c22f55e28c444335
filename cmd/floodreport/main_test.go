package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/dataset"
)

const projectsCSV = "Region,MainIsland,Province,Contractor,FundingYear,TypeOfWork,ApprovedBudgetForContract,ContractCost,StartDate,ActualCompletionDate\n" +
	"NCR,Luzon,Manila,Alpha,2021,Dike,110,100,2021-01-01,2021-04-11\n" +
	"R7,Visayas,Cebu,Beta,2022,Seawall,130,100,2022-01-01,2022-04-11\n" +
	"R9,Mindanao,Zambo,Gamma,2019,Drainage,90,100,2019-02-01,2019-02-11\n"

func writeProjects(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.csv")
	require.NoError(t, os.WriteFile(path, []byte(projectsCSV), 0o644))
	return dir, path
}

func TestReportCommand_WritesOutputs(t *testing.T) {
	dir, input := writeProjects(t)
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &stdout, &stderr)
	cmd.SetArgs([]string{"report", "--input", input, "--out", out, "--xlsx"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := stdout.String()
	require.Contains(t, text, "Processing dataset... (3 rows loaded, 2 filtered for 2021-2023)")
	require.Contains(t, text, "Report 1: Regional Flood Mitigation Efficiency Summary")
	require.Contains(t, text, "contractors: No records to report on (after filtering).")

	for _, f := range []string{config.EfficiencyFileName, config.TrendsFileName, config.SummaryFileName, config.WorkbookFileName} {
		_, err := os.Stat(filepath.Join(out, f))
		require.NoError(t, err, f)
	}
	_, err := os.Stat(filepath.Join(out, config.ContractorsFileName))
	require.True(t, os.IsNotExist(err))
	require.Contains(t, stderr.String(), `"message":"report run finished"`)
}

func TestReportCommand_UnknownReport(t *testing.T) {
	_, input := writeProjects(t)
	cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"report", "--input", input, "--only", "bogus"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "VALIDATION:")
}

func TestServeCommand_RequiresTransport(t *testing.T) {
	cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})
	require.ErrorContains(t, cmd.ExecuteContext(context.Background()), "--stdio")
}

func TestMenu(t *testing.T) {
	loads, generated := 0, 0
	var out bytes.Buffer
	m := &menu{
		in:  strings.NewReader("2\nabc\n9\n1\n2\n3\n"),
		out: &out,
		load: func(context.Context) (*dataset.Dataset, error) {
			loads++
			return dataset.New([]string{"StartDate"}, nil, 0), nil
		},
		generate: func(context.Context, *dataset.Dataset) error {
			generated++
			return nil
		},
	}
	require.NoError(t, m.run(context.Background()))
	require.Equal(t, 1, loads)
	require.Equal(t, 1, generated)

	text := out.String()
	require.Contains(t, text, "Select Language Implementation")
	require.Contains(t, text, "No dataset loaded. Please load the file first.")
	require.Contains(t, text, "Invalid input, please enter a number.")
	require.Contains(t, text, "Invalid choice, try again.")
	require.Contains(t, text, "Exiting Program...")
}

func TestMenu_LoadErrorKeepsLooping(t *testing.T) {
	var out bytes.Buffer
	m := &menu{
		in:       strings.NewReader("1\n"),
		out:      &out,
		load:     func(context.Context) (*dataset.Dataset, error) { return nil, errors.New("no such file") },
		generate: func(context.Context, *dataset.Dataset) error { return nil },
	}
	require.NoError(t, m.run(context.Background()), "EOF ends the session")
	require.Contains(t, out.String(), "Error: no such file")
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinodismyname/floodreport/internal/dataset"
)

func (a *app) interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Menu-driven loop: load the dataset, generate reports, exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := a.setup(cmd)
			if err != nil {
				return err
			}
			m := &menu{
				in:  a.stdin,
				out: a.stdout,
				load: func(ctx context.Context) (*dataset.Dataset, error) {
					return loadDataset(ctx, a.stdout, cfg)
				},
				generate: func(ctx context.Context, ds *dataset.Dataset) error {
					return generate(ctx, a.stdout, cfg, ds, cfg.SelectedReports())
				},
			}
			return m.run(ctx)
		},
	}
}

// menu is the interactive session. The loaded dataset lives only as long as
// the session.
type menu struct {
	in       io.Reader
	out      io.Writer
	load     func(context.Context) (*dataset.Dataset, error)
	generate func(context.Context, *dataset.Dataset) error
	ds       *dataset.Dataset
}

func (m *menu) run(ctx context.Context) error {
	scanner := bufio.NewScanner(m.in)
	for {
		fmt.Fprintln(m.out, "Select Language Implementation")
		fmt.Fprintln(m.out, "[1] Load the file")
		fmt.Fprintln(m.out, "[2] Generate Reports")
		fmt.Fprintln(m.out, "[3] Exit")
		fmt.Fprint(m.out, "\nEnter choice: ")

		if !scanner.Scan() {
			fmt.Fprintln(m.out)
			return scanner.Err()
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(m.out, "Invalid input, please enter a number.")
			fmt.Fprintln(m.out)
			continue
		}
		fmt.Fprintln(m.out)

		switch choice {
		case 1:
			ds, err := m.load(ctx)
			if err != nil {
				fmt.Fprintf(m.out, "Error: %v\n\n", err)
				continue
			}
			m.ds = ds
		case 2:
			if m.ds == nil {
				fmt.Fprintln(m.out, "No dataset loaded. Please load the file first.")
				fmt.Fprintln(m.out)
				continue
			}
			if err := m.generate(ctx, m.ds); err != nil {
				fmt.Fprintf(m.out, "Error: %v\n\n", err)
			}
		case 3:
			fmt.Fprintln(m.out, "Exiting Program...")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice, try again.")
			fmt.Fprintln(m.out)
		}
	}
}

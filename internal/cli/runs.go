package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/report"
)

func newRunsCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect journaled runs",
	}
	cmd.AddCommand(newRunsListCmd(rc), newRunsShowCmd(rc))
	return cmd
}

func openStore(rc *RootConfig) (*journal.SQLite, error) {
	j, err := journal.NewSQLite(rc.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func newRunsListCmd(rc *RootConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openStore(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			report.RunsTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 = all)")
	return cmd
}

func newRunsShowCmd(rc *RootConfig) *cobra.Command {
	var (
		org    bool
		trades bool
		csvDir string
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openStore(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.LoadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if csvDir != "" {
				out, err := journal.NewCSV(csvDir)
				if err != nil {
					return err
				}
				if err := out.RecordRun(cmd.Context(), run); err != nil {
					return err
				}
				tp, ep := out.Paths(run.Record.RunID)
				fmt.Fprintf(w, "wrote %s\nwrote %s\n", tp, ep)
				return nil
			}
			if org {
				s, err := journal.FormatRunOrgWithTrades(run)
				if err != nil {
					return err
				}
				fmt.Fprint(w, s)
				return nil
			}

			report.PrintRun(w, run.Record)
			if trades && len(run.Trades) > 0 {
				fmt.Fprintln(w)
				report.JournalTradesTable(w, run.Trades)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&org, "org", false, "print as an Org-mode entry")
	cmd.Flags().BoolVar(&trades, "trades", false, "print the run's trades")
	cmd.Flags().StringVar(&csvDir, "csv", "", "export trades and equity CSV into this directory")
	return cmd
}

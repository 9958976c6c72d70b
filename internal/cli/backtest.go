package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/whiterabbit74/stonks-sub003/config"
	"github.com/whiterabbit74/stonks-sub003/internal/runner"
	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/report"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		showTrades bool
		asJSON     bool
		noJournal  bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the IBS strategy over a run file",
		Long: `Backtest loads the instruments named in a run file, trades them with the
IBS mean-reversion rules and prints a summary. When the run file has an
options block, the closed trades are replayed as call purchases too.

Example:
  stonks backtest -c run.yaml --trades`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc.ConfigPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.LoadFromFile(rc.ConfigPath)
			if err != nil {
				return err
			}
			if noJournal {
				cfg.Journal.Type = config.JournalNone
			}
			if cfg.Journal.Type == config.JournalSQLite && cmd.Flags().Changed("db") {
				cfg.Journal.DBPath = rc.DBPath
			}
			return runBacktest(cmd.Context(), rc, cfg, cmd.OutOrStdout(), showTrades, asJSON)
		},
	}

	cmd.Flags().BoolVar(&showTrades, "trades", false, "print every trade")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record the run")

	return cmd
}

func runBacktest(ctx context.Context, rc *RootConfig, cfg *config.Config, w io.Writer, showTrades, asJSON bool) error {
	sets, err := cfg.LoadBars()
	if err != nil {
		return err
	}
	rates, err := cfg.Rates()
	if err != nil {
		return err
	}
	job := runner.Job{Strategy: cfg.Strategy, Sets: sets, Rates: rates, Log: rc.Log}
	if cfg.Options != nil {
		oc := cfg.Options.Config
		job.Overlay = &oc
	}
	out, err := runner.Run(job)
	if err != nil {
		return err
	}

	var runID string
	if cfg.Journal.Type != config.JournalNone {
		run, err := journal.NewRun(cfg.Name, out.Config, out.Result, out.Summary)
		if err != nil {
			return err
		}
		if err := record(ctx, cfg.Journal, run); err != nil {
			return err
		}
		runID = run.Record.RunID
		rc.Log.WithField("run_id", runID).Infof("run recorded (%s)", cfg.Journal.Type)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID string `json:"run_id,omitempty"`
			*runner.Outcome
		}{runID, out})
	}

	report.PrintSummary(w, report.Header{
		RunID:       runID,
		Name:        cfg.Name,
		Instruments: out.Result.Instruments,
		Policy:      string(out.Config.Allocation.Kind),
		Start:       out.Result.Start,
		End:         out.Result.End,
	}, out.Summary)
	if showTrades && len(out.Result.Trades) > 0 {
		fmt.Fprintln(w)
		report.TradesTable(w, out.Result.Trades)
	}
	if out.Overlay != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options Overlay")
		report.PrintSummary(w, report.Header{
			Instruments: out.Result.Instruments,
			Policy:      "calls",
			Start:       out.Result.Start,
			End:         out.Result.End,
		}, *out.OverlaySummary)
		if out.Overlay.Skipped > 0 {
			fmt.Fprintf(w, "Skipped:       %d\n", out.Overlay.Skipped)
		}
		if showTrades && len(out.Overlay.Trades) > 0 {
			fmt.Fprintln(w)
			report.OverlayTable(w, out.Overlay.Trades)
		}
	}
	return nil
}

// record writes run to the journal named by jc.
func record(ctx context.Context, jc config.JournalConfig, run journal.Run) error {
	var (
		j   journal.Journal
		err error
	)
	switch jc.Type {
	case config.JournalSQLite:
		j, err = journal.NewSQLite(jc.DBPath)
	case config.JournalCSV:
		j, err = journal.NewCSV(jc.Dir)
	default:
		return fmt.Errorf("unknown journal type %q", jc.Type)
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	return j.RecordRun(ctx, run)
}

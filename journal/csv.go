package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
)

const dateLayout = "2006-01-02"

type tradeRow struct {
	RunID            string `csv:"run_id"`
	TradeID          string `csv:"trade_id"`
	Instrument       string `csv:"instrument"`
	Quantity         string `csv:"quantity"`
	EntryDate        string `csv:"entry_date"`
	EntryPrice       string `csv:"entry_price"`
	ExitDate         string `csv:"exit_date"`
	ExitPrice        string `csv:"exit_price"`
	PnL              string `csv:"pnl"`
	PnLPercent       string `csv:"pnl_pct"`
	DurationDays     int    `csv:"duration_days"`
	Reason           string `csv:"reason"`
	CapitalAfterExit string `csv:"capital_after_exit"`
}

type equityRow struct {
	RunID        string `csv:"run_id"`
	Date         string `csv:"date"`
	Value        string `csv:"value"`
	FreeCapital  string `csv:"free_capital"`
	InvestedCost string `csv:"invested_cost"`
	DrawdownPct  string `csv:"drawdown_pct"`
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// WriteTradesCSV writes trades with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	rows := make([]*tradeRow, len(trades))
	for i, t := range trades {
		rows[i] = &tradeRow{
			RunID:            t.RunID,
			TradeID:          t.TradeID,
			Instrument:       t.Instrument,
			Quantity:         f(t.Quantity),
			EntryDate:        t.EntryDate.Format(dateLayout),
			EntryPrice:       f(t.EntryPrice),
			ExitDate:         t.ExitDate.Format(dateLayout),
			ExitPrice:        f(t.ExitPrice),
			PnL:              f(t.PnL),
			PnLPercent:       f(t.PnLPercent),
			DurationDays:     t.DurationDays,
			Reason:           t.Reason,
			CapitalAfterExit: f(t.CapitalAfterExit),
		}
	}
	return gocsv.Marshal(rows, w)
}

// WriteEquityCSV writes the equity curve with a header row.
func WriteEquityCSV(w io.Writer, equity []EquityRecord) error {
	rows := make([]*equityRow, len(equity))
	for i, e := range equity {
		rows[i] = &equityRow{
			RunID:        e.RunID,
			Date:         e.Date.Format(dateLayout),
			Value:        f(e.Value),
			FreeCapital:  f(e.FreeCapital),
			InvestedCost: f(e.InvestedCost),
			DrawdownPct:  f(e.DrawdownPct),
		}
	}
	return gocsv.Marshal(rows, w)
}

// CSV writes each run as <run_id>_trades.csv and <run_id>_equity.csv in
// a directory.
type CSV struct {
	dir string
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSV{dir: dir}, nil
}

// Paths returns the files RecordRun writes for runID.
func (j *CSV) Paths(runID string) (trades, equity string) {
	return filepath.Join(j.dir, runID+"_trades.csv"), filepath.Join(j.dir, runID+"_equity.csv")
}

func (j *CSV) RecordRun(_ context.Context, run Run) error {
	tp, ep := j.Paths(run.Record.RunID)
	if err := writeFile(tp, func(w io.Writer) error { return WriteTradesCSV(w, run.Trades) }); err != nil {
		return fmt.Errorf("export trades: %w", err)
	}
	if err := writeFile(ep, func(w io.Writer) error { return WriteEquityCSV(w, run.Equity) }); err != nil {
		return fmt.Errorf("export equity: %w", err)
	}
	return nil
}

func (j *CSV) Close() error { return nil }

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

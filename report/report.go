// Package report renders runs for a terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/metrics"
	"github.com/whiterabbit74/stonks-sub003/options"
)

const rule = "--------------------------------------------------"

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
}

// Header identifies a run in a printed summary.
type Header struct {
	RunID       string
	Name        string
	Instruments []string
	Policy      string
	Start, End  time.Time
}

// PrintSummary writes a sectioned summary of a run.
func PrintSummary(w io.Writer, h Header, s metrics.Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	if h.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", h.RunID)
	}
	if h.Name != "" {
		fmt.Fprintf(w, "Name:          %s\n", h.Name)
	}
	fmt.Fprintf(w, "Instruments:   %s\n", strings.Join(h.Instruments, ", "))
	fmt.Fprintf(w, "Allocation:    %s\n", h.Policy)
	fmt.Fprintf(w, "Period:        %s .. %s\n", h.Start.Format("2006-01-02"), h.End.Format("2006-01-02"))

	heading(w, "Trade Statistics")
	fmt.Fprintf(w, "Trades:        %d\n", s.TradeCount)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate)
	fmt.Fprintf(w, "Avg Win:       %.2f\n", s.AvgWin)
	fmt.Fprintf(w, "Avg Loss:      %.2f\n", s.AvgLoss)
	fmt.Fprintf(w, "Avg Trade:     %.2f%%\n", s.AvgTradePct)
	fmt.Fprintf(w, "Avg Duration:  %.1f days\n", s.AvgDurationDays)
	if len(s.ExitReasons) > 0 {
		reasons := make([]string, 0, len(s.ExitReasons))
		for r, n := range s.ExitReasons {
			reasons = append(reasons, fmt.Sprintf("%s=%d", r, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w, "Exits:         %s\n", strings.Join(reasons, " "))
	}
	if s.SkippedSignals > 0 {
		fmt.Fprintf(w, "Skipped:       %d\n", s.SkippedSignals)
	}
	if s.InvalidBars > 0 {
		fmt.Fprintf(w, "Invalid Bars:  %d\n", s.InvalidBars)
	}

	heading(w, "Account Performance")
	fmt.Fprintf(w, "Start Balance: %.2f\n", s.InitialCapital)
	if s.ContributionCount > 0 {
		fmt.Fprintf(w, "Contributed:   %.2f (%d)\n", s.TotalContributed, s.ContributionCount)
	}
	fmt.Fprintf(w, "End Balance:   %.2f\n", s.FinalValue)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", s.NetProfit)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", s.CAGR)
	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	if s.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdownPct)
	}
	fmt.Fprintf(w, "Sharpe:        %.2f\n", s.Sharpe)
	fmt.Fprintf(w, "Exposure:      %.2f%%\n", s.ExposurePct)
}

// PrintRun writes the stored summary of a journaled run.
func PrintRun(w io.Writer, r journal.RunRecord) {
	PrintSummary(w, Header{
		RunID:       r.RunID,
		Name:        r.Name,
		Instruments: r.Instruments,
		Policy:      r.Policy,
		Start:       r.Start,
		End:         r.End,
	}, metrics.Summary{
		InitialCapital:   r.InitialCapital,
		TotalContributed: r.TotalContributed,
		FinalValue:       r.FinalValue,
		NetProfit:        r.NetProfit,
		TotalReturnPct:   r.ReturnPct,
		CAGR:             metrics.CAGR(r.InitialCapital+r.TotalContributed, r.FinalValue, r.Start, r.End),
		MaxDrawdownPct:   r.MaxDDPct,
		Sharpe:           r.Sharpe,
		TradeCount:       r.Trades,
		Wins:             r.Wins,
		Losses:           r.Losses,
		WinRate:          r.WinRate,
		ProfitFactor:     r.ProfitFactor,
	})
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

// TradesTable lists equity trades.
func TradesTable(w io.Writer, trades []backtest.Trade) {
	t := newTable(w, []string{"ID", "Entry", "Exit", "Qty", "Entry Px", "Exit Px", "P/L", "P/L %", "Days", "Reason", "Capital"})
	for _, tr := range trades {
		t.Append([]string{
			tr.ID,
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			fmt.Sprintf("%.0f", tr.Quantity),
			money(tr.EntryPrice),
			money(tr.ExitPrice),
			money(tr.PnL),
			money(tr.PnLPercent),
			fmt.Sprintf("%d", tr.DurationDays),
			string(tr.ExitReason),
			money(tr.CapitalAfterExit),
		})
	}
	t.Render()
}

// JournalTradesTable lists trades loaded back from the journal.
func JournalTradesTable(w io.Writer, trades []journal.TradeRecord) {
	out := make([]backtest.Trade, len(trades))
	for i, tr := range trades {
		out[i] = backtest.Trade{
			ID:               tr.TradeID,
			Instrument:       tr.Instrument,
			EntryDate:        tr.EntryDate,
			ExitDate:         tr.ExitDate,
			EntryPrice:       tr.EntryPrice,
			ExitPrice:        tr.ExitPrice,
			Quantity:         tr.Quantity,
			PnL:              tr.PnL,
			PnLPercent:       tr.PnLPercent,
			DurationDays:     tr.DurationDays,
			ExitReason:       backtest.ExitReason(tr.Reason),
			CapitalAfterExit: tr.CapitalAfterExit,
		}
	}
	TradesTable(w, out)
}

// RunsTable lists journaled runs, newest first as given.
func RunsTable(w io.Writer, runs []journal.RunRecord) {
	t := newTable(w, []string{"Run ID", "Created", "Name", "Instruments", "Trades", "Net P/L", "Return %", "Max DD %"})
	for _, r := range runs {
		t.Append([]string{
			r.RunID,
			r.Created.Format("2006-01-02 15:04"),
			r.Name,
			strings.Join(r.Instruments, ","),
			fmt.Sprintf("%d", r.Trades),
			money(r.NetProfit),
			money(r.ReturnPct),
			money(r.MaxDDPct),
		})
	}
	t.Render()
}

// OverlayTable lists option trades.
func OverlayTable(w io.Writer, trades []options.Trade) {
	t := newTable(w, []string{"Trade", "Entry", "Exit", "Strike", "Vol", "Contracts", "Entry Px", "Exit Px", "P/L", "Reason"})
	for _, tr := range trades {
		t.Append([]string{
			tr.TradeID,
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			money(tr.Strike),
			fmt.Sprintf("%.1f%%", tr.ImpliedVolAtEntry*100),
			fmt.Sprintf("%.0f", tr.Contracts),
			money(tr.EntryOptionPrice),
			money(tr.ExitOptionPrice),
			money(tr.PnL),
			string(tr.ExitReason),
		})
	}
	t.Render()
}

// Package journal persists finished backtest runs: a SQLite store that can
// list and reload runs, and flat CSV exports of trades and equity.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/metrics"
	"github.com/whiterabbit74/stonks-sub003/pkg/id"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("journal: run not found")

// RunRecord mirrors the runs table.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Created     time.Time `json:"created"`
	Name        string    `json:"name"`
	Instruments []string  `json:"instruments"`
	Policy      string    `json:"policy"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Config      []byte    `json:"-"` // strategy config as JSON

	InitialCapital   float64 `json:"initial_capital"`
	TotalContributed float64 `json:"total_contributed"`
	FinalValue       float64 `json:"final_value"`
	NetProfit        float64 `json:"net_profit"`
	ReturnPct        float64 `json:"return_pct"`
	MaxDDPct         float64 `json:"max_dd_pct"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	Sharpe           float64 `json:"sharpe"`

	Trades int `json:"trades"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// TradeRecord mirrors the trades table.
type TradeRecord struct {
	RunID            string    `json:"run_id"`
	TradeID          string    `json:"trade_id"`
	Instrument       string    `json:"instrument"`
	Quantity         float64   `json:"quantity"`
	EntryPrice       float64   `json:"entry_price"`
	ExitPrice        float64   `json:"exit_price"`
	EntryDate        time.Time `json:"entry_date"`
	ExitDate         time.Time `json:"exit_date"`
	PnL              float64   `json:"pnl"`
	PnLPercent       float64   `json:"pnl_percent"`
	DurationDays     int       `json:"duration_days"`
	Reason           string    `json:"reason"`
	CapitalAfterExit float64   `json:"capital_after_exit"`
}

// EquityRecord mirrors the equity table.
type EquityRecord struct {
	RunID        string    `json:"run_id"`
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	FreeCapital  float64   `json:"free_capital"`
	InvestedCost float64   `json:"invested_cost"`
	DrawdownPct  float64   `json:"drawdown_pct"`
}

// Run is everything recorded for one backtest.
type Run struct {
	Record RunRecord      `json:"run"`
	Trades []TradeRecord  `json:"trades"`
	Equity []EquityRecord `json:"equity"`
}

type Journal interface {
	RecordRun(ctx context.Context, run Run) error
	Close() error
}

// NewRun assigns a fresh run id and flattens a result into records.
func NewRun(name string, cfg strategy.Config, res *backtest.Result, sum metrics.Summary) (Run, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return Run{}, err
	}
	runID := id.New()
	run := Run{
		Record: RunRecord{
			RunID:            runID,
			Created:          time.Now().UTC(),
			Name:             name,
			Instruments:      res.Instruments,
			Policy:           string(cfg.Allocation.Kind),
			Start:            res.Start,
			End:              res.End,
			Config:           raw,
			InitialCapital:   sum.InitialCapital,
			TotalContributed: sum.TotalContributed,
			FinalValue:       sum.FinalValue,
			NetProfit:        sum.NetProfit,
			ReturnPct:        sum.TotalReturnPct,
			MaxDDPct:         sum.MaxDrawdownPct,
			WinRate:          sum.WinRate,
			ProfitFactor:     sum.ProfitFactor,
			Sharpe:           sum.Sharpe,
			Trades:           sum.TradeCount,
			Wins:             sum.Wins,
			Losses:           sum.Losses,
		},
		Trades: make([]TradeRecord, len(res.Trades)),
		Equity: make([]EquityRecord, len(res.Equity)),
	}
	for i, t := range res.Trades {
		run.Trades[i] = TradeRecord{
			RunID:            runID,
			TradeID:          t.ID,
			Instrument:       t.Instrument,
			Quantity:         t.Quantity,
			EntryPrice:       t.EntryPrice,
			ExitPrice:        t.ExitPrice,
			EntryDate:        t.EntryDate,
			ExitDate:         t.ExitDate,
			PnL:              t.PnL,
			PnLPercent:       t.PnLPercent,
			DurationDays:     t.DurationDays,
			Reason:           string(t.ExitReason),
			CapitalAfterExit: t.CapitalAfterExit,
		}
	}
	for i, p := range res.Equity {
		run.Equity[i] = EquityRecord{
			RunID:        runID,
			Date:         p.Date,
			Value:        p.Value,
			FreeCapital:  p.FreeCapital,
			InvestedCost: p.InvestedCost,
			DrawdownPct:  p.DrawdownPct,
		}
	}
	return run, nil
}

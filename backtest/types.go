package backtest

import (
	"encoding/json"
	"errors"
	"iter"
	"math"
	"time"
)

// ErrNoBars is returned when no instrument contributes a single bar.
var ErrNoBars = errors.New("backtest: no bars")

type ExitReason string

const (
	ExitIndicator ExitReason = "indicator_signal"
	ExitMaxHold   ExitReason = "max_hold_days"
	ExitEndOfData ExitReason = "end_of_data"
)

// Position is an open long position. It is never mutated; closing it
// produces exactly one Trade.
type Position struct {
	Instrument      string
	EntryDate       time.Time
	EntryIndex      int // bar index in the instrument's own series
	EntryPrice      float64
	Quantity        float64
	MarginUsed      float64
	EntryCommission float64
	EntryIBS        float64
}

// TradeContext carries the indicator values and calendar facts seen when
// the trade was opened and closed.
type TradeContext struct {
	EntryIBS     float64 `json:"entry_ibs"`
	ExitIBS      float64 `json:"exit_ibs"` // NaN when undefined on the exit bar
	CalendarDays int     `json:"calendar_days"`
	Leverage     float64 `json:"leverage"`
}

// MarshalJSON writes an undefined exit IBS as null.
func (c TradeContext) MarshalJSON() ([]byte, error) {
	type plain TradeContext
	out := struct {
		plain
		ExitIBS *float64 `json:"exit_ibs"`
	}{plain: plain(c)}
	if !math.IsNaN(c.ExitIBS) {
		out.ExitIBS = &c.ExitIBS
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null exit IBS back as NaN.
func (c *TradeContext) UnmarshalJSON(data []byte) error {
	type plain TradeContext
	in := struct {
		*plain
		ExitIBS *float64 `json:"exit_ibs"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.ExitIBS = math.NaN()
	if in.ExitIBS != nil {
		c.ExitIBS = *in.ExitIBS
	}
	return nil
}

// Trade is a closed position.
type Trade struct {
	ID              string       `json:"id"`
	Instrument      string       `json:"instrument"`
	EntryDate       time.Time    `json:"entry_date"`
	ExitDate        time.Time    `json:"exit_date"`
	EntryPrice      float64      `json:"entry_price"`
	ExitPrice       float64      `json:"exit_price"`
	Quantity        float64      `json:"quantity"`
	MarginUsed      float64      `json:"margin_used"`
	EntryCommission float64      `json:"entry_commission"`
	ExitCommission  float64      `json:"exit_commission"`
	PnL             float64      `json:"pnl"`
	PnLPercent      float64      `json:"pnl_percent"` // of capital committed (margin + entry commission)
	DurationDays    int          `json:"duration_days"`
	ExitReason      ExitReason   `json:"exit_reason"`
	Context         TradeContext `json:"context"`

	// CapitalAfterExit is the portfolio total value at the end of ExitDate.
	// It is filled once, when that date's equity point is final.
	CapitalAfterExit float64 `json:"capital_after_exit"`
}

// PortfolioState is the one mutable accumulator of a run. The caller owns
// it; FreeCapital + InvestedCost == TotalValue after every date.
type PortfolioState struct {
	FreeCapital  float64
	InvestedCost float64
	TotalValue   float64
}

// NewPortfolio returns a state holding only cash.
func NewPortfolio(capital float64) *PortfolioState {
	return &PortfolioState{FreeCapital: capital, TotalValue: capital}
}

type EquityPoint struct {
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	FreeCapital  float64   `json:"free_capital"`
	InvestedCost float64   `json:"invested_cost"`
	DrawdownPct  float64   `json:"drawdown_pct"`
	Contribution float64   `json:"contribution,omitempty"` // cash injected on this date
}

// Result is everything a run produces. Trades are in close order.
type Result struct {
	Instruments       []string      `json:"instruments"`
	Start             time.Time     `json:"start"`
	End               time.Time     `json:"end"`
	InitialCapital    float64       `json:"initial_capital"`
	FinalValue        float64       `json:"final_value"`
	Trades            []Trade       `json:"trades"`
	Equity            []EquityPoint `json:"equity"`
	TotalContributed  float64       `json:"total_contributed"`
	ContributionCount int           `json:"contribution_count"`
	SkippedSignals    int           `json:"skipped_signals"`
	InvalidBars       int           `json:"invalid_bars"`
}

// TradeSeq streams the closed trades in close order.
func (r *Result) TradeSeq() iter.Seq[Trade] {
	return func(yield func(Trade) bool) {
		for _, t := range r.Trades {
			if !yield(t) {
				return
			}
		}
	}
}

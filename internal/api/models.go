package api

import (
	"encoding/json"
	"fmt"

	"github.com/whiterabbit74/stonks-sub003/internal/runner"
	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/options"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// BarInput is one daily bar in a backtest request.
type BarInput struct {
	Date   string  `json:"date" binding:"required"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// InstrumentInput is the bar series of one instrument.
type InstrumentInput struct {
	ID   string     `json:"id" binding:"required"`
	Bars []BarInput `json:"bars" binding:"required,min=1,dive"`
}

// BacktestRequest represents a request to run a backtest. Strategy and
// Options are applied over their defaults; a missing Options block
// disables the overlay.
type BacktestRequest struct {
	Name        string            `json:"name"`
	Instruments []InstrumentInput `json:"instruments" binding:"required,min=1,dive"`
	Strategy    json.RawMessage   `json:"strategy,omitempty"`
	Options     json.RawMessage   `json:"options,omitempty"`
	Record      bool              `json:"record"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// StrategyConfig decodes the strategy block over strategy.Default().
func (r *BacktestRequest) StrategyConfig() (strategy.Config, error) {
	cfg := strategy.Default()
	if present(r.Strategy) {
		if err := json.Unmarshal(r.Strategy, &cfg); err != nil {
			return cfg, fmt.Errorf("strategy: %w", err)
		}
	}
	return cfg, nil
}

// OverlayConfig decodes the options block over options.DefaultConfig(),
// or returns nil when the request has none.
func (r *BacktestRequest) OverlayConfig() (*options.Config, error) {
	if !present(r.Options) {
		return nil, nil
	}
	cfg := options.DefaultConfig()
	if err := json.Unmarshal(r.Options, &cfg); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	return &cfg, nil
}

// BarSets converts the request series into bar sets.
func (r *BacktestRequest) BarSets() ([]*market.BarSet, error) {
	sets := make([]*market.BarSet, 0, len(r.Instruments))
	for _, in := range r.Instruments {
		bars := make([]market.Bar, len(in.Bars))
		for i, b := range in.Bars {
			date, err := market.ParseDate(b.Date)
			if err != nil {
				return nil, fmt.Errorf("instrument %s bar %d: %w", in.ID, i, err)
			}
			bars[i] = market.Bar{Date: date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
		}
		bs := market.NewBarSet(in.ID, bars)
		bs.Source = "request"
		sets = append(sets, bs)
	}
	return sets, nil
}

// BacktestResponse is the result of POST /api/v1/backtest.
type BacktestResponse struct {
	RunID string `json:"run_id,omitempty"`
	*runner.Outcome
}

// RunResponse is a journaled run with its stored configuration.
type RunResponse struct {
	journal.Run
	Config json.RawMessage `json:"config,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

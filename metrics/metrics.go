// Package metrics rolls a finished run up into summary statistics.
package metrics

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/options"
)

// TradingDays annualizes daily statistics.
const TradingDays = 252

// NoLossProfitFactor stands in for an infinite profit factor.
const NoLossProfitFactor = 999

type Summary struct {
	InitialCapital    float64                     `json:"initial_capital"`
	TotalContributed  float64                     `json:"total_contributed"`
	ContributionCount int                         `json:"contribution_count"`
	FinalValue        float64                     `json:"final_value"`
	NetProfit         float64                     `json:"net_profit"`
	TotalReturnPct    float64                     `json:"total_return_pct"`
	CAGR              float64                     `json:"cagr_pct"`
	MaxDrawdownPct    float64                     `json:"max_drawdown_pct"`
	Sharpe            float64                     `json:"sharpe"`
	TradeCount        int                         `json:"trade_count"`
	Wins              int                         `json:"wins"`
	Losses            int                         `json:"losses"`
	WinRate           float64                     `json:"win_rate_pct"`
	ProfitFactor      float64                     `json:"profit_factor"`
	AvgWin            float64                     `json:"avg_win"`
	AvgLoss           float64                     `json:"avg_loss"`
	AvgTradePct       float64                     `json:"avg_trade_pct"`
	AvgDurationDays   float64                     `json:"avg_duration_days"`
	ExposurePct       float64                     `json:"exposure_pct"`
	ExitReasons       map[backtest.ExitReason]int `json:"exit_reasons"`
	SkippedSignals    int                         `json:"skipped_signals"`
	InvalidBars       int                         `json:"invalid_bars"`
}

// Summarize computes the summary of an equity backtest.
func Summarize(res *backtest.Result) Summary {
	s := Summary{
		InitialCapital:    res.InitialCapital,
		TotalContributed:  res.TotalContributed,
		ContributionCount: res.ContributionCount,
		FinalValue:        res.FinalValue,
		ExitReasons:       make(map[backtest.ExitReason]int),
		SkippedSignals:    res.SkippedSignals,
		InvalidBars:       res.InvalidBars,
	}
	s.NetProfit = res.FinalValue - res.InitialCapital - res.TotalContributed
	s.TotalReturnPct = pct(s.NetProfit, res.InitialCapital+res.TotalContributed)
	s.CAGR = CAGR(res.InitialCapital+res.TotalContributed, res.FinalValue, res.Start, res.End)

	values := make([]float64, len(res.Equity))
	flows := make([]float64, len(res.Equity))
	for i, p := range res.Equity {
		values[i] = p.Value
		flows[i] = p.Contribution
		s.MaxDrawdownPct = math.Max(s.MaxDrawdownPct, p.DrawdownPct)
	}
	s.Sharpe = Sharpe(DailyReturns(values, flows))

	pnls := make([]float64, len(res.Trades))
	var pctSum, daySum float64
	var held time.Duration
	for i, t := range res.Trades {
		pnls[i] = t.PnL
		pctSum += t.PnLPercent
		daySum += float64(t.DurationDays)
		held += t.ExitDate.Sub(t.EntryDate)
		s.ExitReasons[t.ExitReason]++
	}
	s.tally(pnls)
	if n := len(res.Trades); n > 0 {
		s.AvgTradePct = pctSum / float64(n)
		s.AvgDurationDays = daySum / float64(n)
	}
	// overlapping positions under the independent policy can exceed 100
	if span := res.End.Sub(res.Start); span > 0 {
		s.ExposurePct = float64(held) / float64(span) * 100
	}
	return s
}

// SummarizeOverlay computes the same statistics for an options overlay.
// The overlay has no contributions and no drawdown column, so drawdown is
// derived from the curve.
func SummarizeOverlay(res *options.Result) Summary {
	s := Summary{
		InitialCapital: res.InitialCapital,
		FinalValue:     res.FinalValue,
		ExitReasons:    make(map[backtest.ExitReason]int),
		SkippedSignals: res.Skipped,
	}
	s.NetProfit = res.FinalValue - res.InitialCapital
	s.TotalReturnPct = pct(s.NetProfit, res.InitialCapital)

	values := make([]float64, len(res.Equity))
	for i, p := range res.Equity {
		values[i] = p.Value
	}
	s.MaxDrawdownPct = MaxDrawdown(res.InitialCapital, values)
	s.Sharpe = Sharpe(DailyReturns(values, nil))
	if n := len(res.Equity); n > 0 {
		s.CAGR = CAGR(res.InitialCapital, res.FinalValue, res.Equity[0].Date, res.Equity[n-1].Date)
	}

	pnls := make([]float64, len(res.Trades))
	var pctSum, daySum float64
	for i, t := range res.Trades {
		pnls[i] = t.PnL
		pctSum += t.PnLPercent
		daySum += t.ExitDate.Sub(t.EntryDate).Hours() / 24
		s.ExitReasons[t.ExitReason]++
	}
	s.tally(pnls)
	if n := len(res.Trades); n > 0 {
		s.AvgTradePct = pctSum / float64(n)
		s.AvgDurationDays = daySum / float64(n)
	}
	return s
}

// tally fills the win/loss statistics. Break-even trades count toward
// TradeCount only.
func (s *Summary) tally(pnls []float64) {
	var winAmt, lossAmt float64
	for _, p := range pnls {
		switch {
		case p > 0:
			s.Wins++
			winAmt += p
		case p < 0:
			s.Losses++
			lossAmt -= p
		}
	}
	s.TradeCount = len(pnls)
	if s.TradeCount > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TradeCount) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = winAmt / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = -lossAmt / float64(s.Losses)
	}
	switch {
	case lossAmt > 0:
		s.ProfitFactor = winAmt / lossAmt
	case winAmt > 0:
		s.ProfitFactor = NoLossProfitFactor
	}
}

func pct(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

// CAGR is the compound annual growth rate in percent between two dates.
func CAGR(start, end float64, from, to time.Time) float64 {
	years := to.Sub(from).Hours() / 24 / 365.25
	if years <= 0 || start <= 0 || end <= 0 {
		return 0
	}
	return (math.Pow(end/start, 1/years) - 1) * 100
}

// MaxDrawdown returns the largest peak-to-trough fall in percent. The
// running peak starts at initial.
func MaxDrawdown(initial float64, values []float64) float64 {
	peak := initial
	dd := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd = math.Max(dd, (peak-v)/peak*100)
		}
	}
	return dd
}

// DailyReturns turns a value curve into period returns. flows[i], when
// given, is cash added on day i and is not counted as return.
func DailyReturns(values, flows []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			continue
		}
		v := values[i]
		if flows != nil {
			v -= flows[i]
		}
		out = append(out, v/prev-1)
	}
	return out
}

// Sharpe is the annualized mean over sample deviation of daily returns,
// with a zero risk-free rate. Fewer than two returns or a flat curve
// give 0.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	data := stats.Float64Data(returns)
	mean, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean / sd * math.Sqrt(TradingDays)
}

package backtest

import (
	"time"

	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds consecutive daily bars from a list of IBS values. A
// negative value produces a flat bar (undefined IBS) at price base.
func series(instrument string, base float64, ibs ...float64) *market.BarSet {
	bars := make([]market.Bar, len(ibs))
	for i, v := range ibs {
		date := day0.AddDate(0, 0, i)
		if v < 0 {
			bars[i] = market.Bar{Date: date, Open: base, High: base, Low: base, Close: base}
			continue
		}
		low, high := base-5, base+5
		bars[i] = market.Bar{Date: date, Open: base, High: high, Low: low, Close: low + v*(high-low)}
	}
	return market.NewBarSet(instrument, bars)
}

// closes builds bars whose close is given and whose range puts IBS at
// ibs[i] (flat when negative).
func closes(instrument string, cl []float64, ibs []float64) *market.BarSet {
	bars := make([]market.Bar, len(cl))
	for i, c := range cl {
		date := day0.AddDate(0, 0, i)
		v := ibs[i]
		if v < 0 {
			bars[i] = market.Bar{Date: date, Open: c, High: c, Low: c, Close: c}
			continue
		}
		// choose a 10 point range containing c at position v
		low := c - v*10
		bars[i] = market.Bar{Date: date, Open: c, High: low + 10, Low: low, Close: c}
	}
	return market.NewBarSet(instrument, bars)
}

func baseConfig() strategy.Config {
	return strategy.Config{
		LowIBS:          0.1,
		HighIBS:         0.75,
		MaxHoldDays:     10,
		InitialCapital:  10000,
		CapitalUsagePct: 100,
		Leverage:        1,
		Allocation:      strategy.AllocationPolicy{Kind: strategy.PolicyPooled},
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

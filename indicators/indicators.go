// Package indicators derives per-bar series from daily bars. Every series
// has the same length as its input; undefined slots hold NaN.
package indicators

import (
	"fmt"
	"math"

	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

func periodError(period, n int) error {
	if period <= 0 {
		return &strategy.ConfigurationError{Field: "period", Reason: fmt.Sprintf("must be positive, got %d", period)}
	}
	return &strategy.ConfigurationError{Field: "period", Reason: fmt.Sprintf("%d exceeds series length %d", period, n)}
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// IBS returns the Internal Bar Strength (close-low)/(high-low) of b.
// ok is false when the bar is invalid or has zero range; callers skip the
// bar instead of substituting a neutral value.
func IBS(b market.Bar) (v float64, ok bool) {
	if !b.Valid() {
		return math.NaN(), false
	}
	r := b.Range()
	if r <= 0 {
		return math.NaN(), false
	}
	v = (b.Close - b.Low) / r
	// float noise at the edges
	return math.Min(1, math.Max(0, v)), true
}

// IBSSeries maps IBS over bars.
func IBSSeries(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i], _ = IBS(b)
	}
	return out
}

// SMA is the simple moving average. The first period-1 slots are NaN.
func SMA(series []float64, period int) ([]float64, error) {
	if period <= 0 || period > len(series) {
		return nil, periodError(period, len(series))
	}
	out := nanSeries(len(series))
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA is defined from index 0. Until period values have been seen it is the
// cumulative mean; after that the usual alpha = 2/(period+1) recursion.
func EMA(series []float64, period int) ([]float64, error) {
	if period <= 0 || period > len(series) {
		return nil, periodError(period, len(series))
	}
	out := make([]float64, len(series))
	alpha := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range series {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out, nil
}

// RSI uses Wilder smoothing. A series shorter than period+1 yields all NaN
// without error.
func RSI(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, periodError(period, len(series))
	}
	out := nanSeries(len(series))
	if len(series) < period+1 {
		return out, nil
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsi(avgGain, avgLoss)

	for i := period + 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsi(avgGain, avgLoss)
	}
	return out, nil
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Crossover is true at i when a moves from at-or-below b to strictly above.
func Crossover(a, b []float64) ([]bool, error) {
	return cross(a, b, func(p1, p2, c1, c2 float64) bool { return p1 <= p2 && c1 > c2 })
}

// Crossunder is true at i when a moves from strictly above b to at-or-below.
func Crossunder(a, b []float64) ([]bool, error) {
	return cross(a, b, func(p1, p2, c1, c2 float64) bool { return p1 > p2 && c1 <= c2 })
}

func cross(a, b []float64, hit func(p1, p2, c1, c2 float64) bool) ([]bool, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("cross: series lengths differ (%d vs %d)", len(a), len(b))
	}
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		out[i] = hit(a[i-1], b[i-1], a[i], b[i])
	}
	return out, nil
}

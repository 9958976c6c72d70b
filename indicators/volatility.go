package indicators

import (
	"math"

	"github.com/montanaflynn/stats"
)

// RealizedVolatility is the annualized sample standard deviation of log
// returns over a trailing window of closes. Slot i uses the returns ending
// at i, so it is NaN until window returns exist.
func RealizedVolatility(closes []float64, window int, periodsPerYear float64) []float64 {
	out := nanSeries(len(closes))
	if window < 2 || len(closes) <= window {
		return out
	}

	rets := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i] > 0 && closes[i-1] > 0 {
			rets[i] = math.Log(closes[i] / closes[i-1])
		} else {
			rets[i] = math.NaN()
		}
	}

	scale := math.Sqrt(periodsPerYear)
	for i := window; i < len(closes); i++ {
		sd, err := stats.StandardDeviationSample(stats.Float64Data(rets[i-window+1 : i+1]))
		if err != nil || math.IsNaN(sd) {
			continue
		}
		out[i] = sd * scale
	}
	return out
}

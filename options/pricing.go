// Package options simulates a synthetic call-option position alongside
// each closed equity trade, priced with Black-Scholes against its own
// capital pool.
package options

import (
	"math"

	"github.com/montanaflynn/stats"
)

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BlackScholesCall prices a European call. S spot, K strike, T years to
// expiry, r continuously compounded rate, sigma annualized volatility.
// With no time or no volatility left the price collapses to the
// discounted intrinsic value; non-finite inputs or output give 0.
func BlackScholesCall(S, K, T, r, sigma float64) float64 {
	if !finite(S, K, T, r, sigma) || S <= 0 || K <= 0 {
		return 0
	}
	if T <= 0 || sigma <= 0 {
		return math.Max(S-K*math.Exp(-r*math.Max(T, 0)), 0)
	}
	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+sigma*sigma/2)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	price := S*stats.NormCdf(d1, 0, 1) - K*math.Exp(-r*T)*stats.NormCdf(d2, 0, 1)
	if !finite(price) {
		return 0
	}
	return math.Max(price, 0)
}

// Intrinsic is the value of a call exercised now.
func Intrinsic(S, K float64) float64 {
	if !finite(S, K) {
		return 0
	}
	return math.Max(S-K, 0)
}

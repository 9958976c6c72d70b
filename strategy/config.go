// Package strategy holds the declarative inputs of an IBS mean-reversion
// backtest and validates them.
package strategy

import (
	"sort"
	"strings"
)

type PolicyKind string

const (
	// PolicyPooled allows one open position across all instruments.
	PolicyPooled PolicyKind = "pooled"
	// PolicyIndependent lets every instrument hold its own position, each
	// sized from its share of the shared portfolio.
	PolicyIndependent PolicyKind = "independent"
)

// AllocationPolicy selects how several instruments share one capital pool.
type AllocationPolicy struct {
	Kind PolicyKind `json:"kind" yaml:"kind"`
	// Shares maps instrument -> percent of total value (independent only).
	// Instruments without an entry split what is left equally.
	Shares map[string]float64 `json:"shares,omitempty" yaml:"shares,omitempty"`
}

// Share returns the percent of total portfolio value allotted to
// instrument when running independent positions.
func (p AllocationPolicy) Share(instrument string, instruments []string) float64 {
	if v, ok := p.Shares[instrument]; ok {
		return v
	}
	used := 0.0
	rest := 0
	for _, id := range instruments {
		if v, ok := p.Shares[id]; ok {
			used += v
		} else {
			rest++
		}
	}
	if rest == 0 {
		return 0
	}
	return (100 - used) / float64(rest)
}

type InvalidBarPolicy string

const (
	InvalidBarsSkip  InvalidBarPolicy = "skip"
	InvalidBarsAbort InvalidBarPolicy = "abort"
)

// MonthlyContribution injects Amount of fresh cash on the first trading
// day on or after DayOfMonth, once per month.
type MonthlyContribution struct {
	Amount     float64 `json:"amount" yaml:"amount"`
	DayOfMonth int     `json:"day_of_month" yaml:"day_of_month"`
}

// Config is immutable for the duration of a run.
type Config struct {
	LowIBS          float64              `json:"low_ibs" yaml:"low_ibs"`
	HighIBS         float64              `json:"high_ibs" yaml:"high_ibs"`
	MaxHoldDays     int                  `json:"max_hold_days" yaml:"max_hold_days"`
	InitialCapital  float64              `json:"initial_capital" yaml:"initial_capital"`
	CapitalUsagePct float64              `json:"capital_usage_pct" yaml:"capital_usage_pct"`
	Leverage        float64              `json:"leverage" yaml:"leverage"`
	Commission      CommissionModel      `json:"commission" yaml:"commission"`
	Contribution    *MonthlyContribution `json:"monthly_contribution,omitempty" yaml:"monthly_contribution,omitempty"`
	Allocation      AllocationPolicy     `json:"allocation" yaml:"allocation"`
	InvalidBars     InvalidBarPolicy     `json:"invalid_bars,omitempty" yaml:"invalid_bars,omitempty"`
}

// Default returns the classic IBS setup: buy below 0.1, sell above 0.75.
func Default() Config {
	return Config{
		LowIBS:          0.1,
		HighIBS:         0.75,
		MaxHoldDays:     30,
		InitialCapital:  10000,
		CapitalUsagePct: 100,
		Leverage:        1,
		Allocation:      AllocationPolicy{Kind: PolicyPooled},
		InvalidBars:     InvalidBarsSkip,
	}
}

// Normalize fills zero values that have an obvious default.
func (c Config) Normalize() Config {
	if c.Leverage == 0 {
		c.Leverage = 1
	}
	if c.CapitalUsagePct == 0 {
		c.CapitalUsagePct = 100
	}
	if c.Allocation.Kind == "" {
		c.Allocation.Kind = PolicyPooled
	}
	if c.InvalidBars == "" {
		c.InvalidBars = InvalidBarsSkip
	}
	c.Allocation.Kind = PolicyKind(strings.ToLower(string(c.Allocation.Kind)))
	return c
}

// Validate checks parameter sanity. It returns a *ConfigurationError.
func (c Config) Validate() error {
	if c.LowIBS < 0 || c.LowIBS > 1 {
		return invalid("low_ibs", "must be within [0, 1], got %v", c.LowIBS)
	}
	if c.HighIBS < 0 || c.HighIBS > 1 {
		return invalid("high_ibs", "must be within [0, 1], got %v", c.HighIBS)
	}
	if c.LowIBS >= c.HighIBS {
		return invalid("low_ibs", "must be below high_ibs (%v >= %v)", c.LowIBS, c.HighIBS)
	}
	if c.MaxHoldDays < 1 {
		return invalid("max_hold_days", "must be at least 1, got %d", c.MaxHoldDays)
	}
	if c.InitialCapital <= 0 {
		return invalid("initial_capital", "must be positive, got %v", c.InitialCapital)
	}
	if c.CapitalUsagePct <= 0 || c.CapitalUsagePct > 100 {
		return invalid("capital_usage_pct", "must be within (0, 100], got %v", c.CapitalUsagePct)
	}
	if c.Leverage < 1 {
		return invalid("leverage", "must be at least 1, got %v", c.Leverage)
	}
	switch c.Commission.Type {
	case CommissionNone, CommissionFixed, CommissionPercentage, CommissionCombined:
	default:
		return invalid("commission.type", "unknown type %q", c.Commission.Type)
	}
	if c.Commission.Fixed < 0 || c.Commission.Percent < 0 {
		return invalid("commission", "must not be negative")
	}
	if mc := c.Contribution; mc != nil {
		if mc.Amount <= 0 {
			return invalid("monthly_contribution.amount", "must be positive, got %v", mc.Amount)
		}
		if mc.DayOfMonth < 1 || mc.DayOfMonth > 28 {
			return invalid("monthly_contribution.day_of_month", "must be within [1, 28], got %d", mc.DayOfMonth)
		}
	}
	switch c.Allocation.Kind {
	case PolicyPooled, PolicyIndependent:
	default:
		return invalid("allocation.kind", "unknown policy %q", c.Allocation.Kind)
	}
	total := 0.0
	keys := make([]string, 0, len(c.Allocation.Shares))
	for k := range c.Allocation.Shares {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Allocation.Shares[k]
		if v <= 0 || v > 100 {
			return invalid("allocation.shares."+k, "must be within (0, 100], got %v", v)
		}
		total += v
	}
	if total > 100+1e-9 {
		return invalid("allocation.shares", "sum to %v%%, more than 100%%", total)
	}
	switch c.InvalidBars {
	case InvalidBarsSkip, InvalidBarsAbort:
	default:
		return invalid("invalid_bars", "unknown policy %q", c.InvalidBars)
	}
	return nil
}

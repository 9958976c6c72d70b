package options

import (
	"fmt"

	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// Config drives the overlay. Percentages are whole numbers except
// StrikePct, which is a fraction of spot (0.1 = 10% out of the money).
type Config struct {
	StrikePct          float64 `json:"strike_pct" yaml:"strike_pct"`
	VolWindow          int     `json:"vol_window" yaml:"vol_window"`
	VolAdjustment      float64 `json:"vol_adjustment" yaml:"vol_adjustment"`
	ExpiryDays         int     `json:"expiry_days" yaml:"expiry_days"` // calendar days
	CapitalPct         float64 `json:"capital_pct" yaml:"capital_pct"`
	InitialCapital     float64 `json:"initial_capital" yaml:"initial_capital"`
	ContractMultiplier float64 `json:"contract_multiplier,omitempty" yaml:"contract_multiplier,omitempty"`
	MinOptionPrice     float64 `json:"min_option_price,omitempty" yaml:"min_option_price,omitempty"`
	MinVolatility      float64 `json:"min_volatility,omitempty" yaml:"min_volatility,omitempty"`
	DefaultRate        float64 `json:"default_rate" yaml:"default_rate"`
	PeriodsPerYear     float64 `json:"periods_per_year,omitempty" yaml:"periods_per_year,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		StrikePct:          0.1,
		VolWindow:          20,
		VolAdjustment:      1,
		ExpiryDays:         30,
		CapitalPct:         10,
		InitialCapital:     10000,
		ContractMultiplier: 100,
		MinOptionPrice:     0.01,
		MinVolatility:      0.01,
		DefaultRate:        0.05,
		PeriodsPerYear:     252,
	}
}

// Normalize fills unset fields with their defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.VolWindow == 0 {
		c.VolWindow = d.VolWindow
	}
	if c.VolAdjustment == 0 {
		c.VolAdjustment = d.VolAdjustment
	}
	if c.ExpiryDays == 0 {
		c.ExpiryDays = d.ExpiryDays
	}
	if c.CapitalPct == 0 {
		c.CapitalPct = d.CapitalPct
	}
	if c.InitialCapital == 0 {
		c.InitialCapital = d.InitialCapital
	}
	if c.ContractMultiplier == 0 {
		c.ContractMultiplier = d.ContractMultiplier
	}
	if c.MinOptionPrice == 0 {
		c.MinOptionPrice = d.MinOptionPrice
	}
	if c.MinVolatility == 0 {
		c.MinVolatility = d.MinVolatility
	}
	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = d.PeriodsPerYear
	}
	return c
}

func invalid(field, format string, args ...any) error {
	return &strategy.ConfigurationError{Field: "options." + field, Reason: fmt.Sprintf(format, args...)}
}

func (c Config) Validate() error {
	if c.StrikePct <= -1 {
		return invalid("strike_pct", "must be above -1, got %v", c.StrikePct)
	}
	if c.VolWindow < 2 {
		return invalid("vol_window", "must be at least 2, got %d", c.VolWindow)
	}
	if c.VolAdjustment <= 0 {
		return invalid("vol_adjustment", "must be positive, got %v", c.VolAdjustment)
	}
	if c.ExpiryDays < 1 {
		return invalid("expiry_days", "must be at least 1, got %d", c.ExpiryDays)
	}
	if c.CapitalPct <= 0 || c.CapitalPct > 100 {
		return invalid("capital_pct", "must be within (0, 100], got %v", c.CapitalPct)
	}
	if c.InitialCapital <= 0 {
		return invalid("initial_capital", "must be positive, got %v", c.InitialCapital)
	}
	if c.ContractMultiplier <= 0 {
		return invalid("contract_multiplier", "must be positive, got %v", c.ContractMultiplier)
	}
	if c.MinOptionPrice <= 0 || c.MinVolatility <= 0 {
		return invalid("min_option_price", "floors must be positive")
	}
	if c.PeriodsPerYear <= 0 {
		return invalid("periods_per_year", "must be positive, got %v", c.PeriodsPerYear)
	}
	return nil
}

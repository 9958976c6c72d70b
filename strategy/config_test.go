package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, PolicyPooled, cfg.Allocation.Kind)
}

func TestNormalize(t *testing.T) {
	cfg := Config{Allocation: AllocationPolicy{Kind: "Independent"}}.Normalize()
	assert.Equal(t, 1.0, cfg.Leverage)
	assert.Equal(t, 100.0, cfg.CapitalUsagePct)
	assert.Equal(t, PolicyIndependent, cfg.Allocation.Kind)
	assert.Equal(t, InvalidBarsSkip, cfg.InvalidBars)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"low ibs negative", func(c *Config) { c.LowIBS = -0.1 }, "low_ibs"},
		{"high ibs above one", func(c *Config) { c.HighIBS = 1.2 }, "high_ibs"},
		{"low above high", func(c *Config) { c.LowIBS = 0.8 }, "low_ibs"},
		{"max hold zero", func(c *Config) { c.MaxHoldDays = 0 }, "max_hold_days"},
		{"no capital", func(c *Config) { c.InitialCapital = 0 }, "initial_capital"},
		{"usage over 100", func(c *Config) { c.CapitalUsagePct = 150 }, "capital_usage_pct"},
		{"leverage below one", func(c *Config) { c.Leverage = 0.5 }, "leverage"},
		{"unknown commission", func(c *Config) { c.Commission.Type = "tiered" }, "commission.type"},
		{"negative commission", func(c *Config) { c.Commission = CommissionModel{Type: CommissionFixed, Fixed: -1} }, "commission"},
		{"contribution day", func(c *Config) { c.Contribution = &MonthlyContribution{Amount: 100, DayOfMonth: 31} }, "monthly_contribution.day_of_month"},
		{"contribution amount", func(c *Config) { c.Contribution = &MonthlyContribution{Amount: 0, DayOfMonth: 1} }, "monthly_contribution.amount"},
		{"unknown policy", func(c *Config) { c.Allocation.Kind = "roundrobin" }, "allocation.kind"},
		{"shares over 100", func(c *Config) {
			c.Allocation = AllocationPolicy{Kind: PolicyIndependent, Shares: map[string]float64{"A": 60, "B": 60}}
		}, "allocation.shares"},
		{"invalid bar policy", func(c *Config) { c.InvalidBars = "ignore" }, "invalid_bars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestAllocationShare(t *testing.T) {
	p := AllocationPolicy{Kind: PolicyIndependent}
	ids := []string{"A", "B", "C", "D"}
	assert.Equal(t, 25.0, p.Share("A", ids))

	p.Shares = map[string]float64{"A": 40}
	assert.Equal(t, 40.0, p.Share("A", ids))
	assert.Equal(t, 20.0, p.Share("B", ids))
}

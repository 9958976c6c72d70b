package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiterabbit74/stonks-sub003/options"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "SPY", cfg.Instruments[0].ID)
	assert.Equal(t, 0.1, cfg.Strategy.LowIBS)
	assert.Equal(t, JournalSQLite, cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func(mut func(c *Config)) *Config {
		c := Default()
		mut(c)
		return c
	}
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			config: Default(),
		},
		{
			name:    "no instruments",
			config:  valid(func(c *Config) { c.Instruments = nil }),
			wantErr: true,
			errMsg:  "at least one instrument is required",
		},
		{
			name: "duplicate instrument",
			config: valid(func(c *Config) {
				c.Instruments = append(c.Instruments, InstrumentConfig{ID: "SPY", Bars: "b.csv"})
			}),
			wantErr: true,
			errMsg:  `duplicate instrument "SPY"`,
		},
		{
			name:    "missing bars",
			config:  valid(func(c *Config) { c.Instruments[0].Bars = "" }),
			wantErr: true,
			errMsg:  "instruments[0].bars is required",
		},
		{
			name:    "bad thresholds",
			config:  valid(func(c *Config) { c.Strategy.HighIBS = 0.05 }),
			wantErr: true,
			errMsg:  "low_ibs",
		},
		{
			name: "share for unknown instrument",
			config: valid(func(c *Config) {
				c.Strategy.Allocation = strategy.AllocationPolicy{Kind: strategy.PolicyIndependent, Shares: map[string]float64{"QQQ": 50}}
			}),
			wantErr: true,
			errMsg:  "allocation.shares.QQQ",
		},
		{
			name: "bad overlay",
			config: valid(func(c *Config) {
				o := options.DefaultConfig()
				o.ExpiryDays = -1
				c.Options = &OverlayConfig{Config: o}
			}),
			wantErr: true,
			errMsg:  "options.expiry_days",
		},
		{
			name:    "sqlite without path",
			config:  valid(func(c *Config) { c.Journal = JournalConfig{Type: JournalSQLite} }),
			wantErr: true,
			errMsg:  "journal db_path required",
		},
		{
			name:    "csv without dir",
			config:  valid(func(c *Config) { c.Journal = JournalConfig{Type: JournalCSV} }),
			wantErr: true,
			errMsg:  "journal dir required",
		},
		{
			name:    "unknown journal",
			config:  valid(func(c *Config) { c.Journal = JournalConfig{Type: "mongo"} }),
			wantErr: true,
			errMsg:  "journal.type must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrategyErrorsAreTyped(t *testing.T) {
	c := Default()
	c.Strategy.MaxHoldDays = 0
	var ce *strategy.ConfigurationError
	require.True(t, errors.As(c.Validate(), &ce))
	assert.Equal(t, "max_hold_days", ce.Field)
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Strategy.Contribution = &strategy.MonthlyContribution{Amount: 500, DayOfMonth: 10}
	cfg.Options = &OverlayConfig{Config: options.DefaultConfig(), RatesFile: "rates.csv"}

	for _, name := range []string{"run.yaml", "run.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Name, loaded.Name)
			assert.Equal(t, cfg.Strategy, loaded.Strategy)
			assert.Equal(t, cfg.Options.Config, loaded.Options.Config)
			// relative paths resolve against the file's directory
			assert.Equal(t, filepath.Join(tmpDir, "data/SPY.csv"), loaded.Instruments[0].Bars)
			assert.Equal(t, filepath.Join(tmpDir, "rates.csv"), loaded.Options.RatesFile)
			assert.Equal(t, filepath.Join(tmpDir, "stonks.db"), loaded.Journal.DBPath)
		})
	}
}

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
instruments:
  - id: QQQ
    bars: /data/QQQ.csv
strategy:
  low_ibs: 0.2
  high_ibs: 0.8
  max_hold_days: 5
  initial_capital: 5000
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Strategy.Leverage)
	assert.Equal(t, 100.0, cfg.Strategy.CapitalUsagePct)
	assert.Equal(t, strategy.PolicyPooled, cfg.Strategy.Allocation.Kind)
	assert.Equal(t, JournalNone, cfg.Journal.Type)
	assert.Nil(t, cfg.Options)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instruments: [\n"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadBarsAppliesSplits(t *testing.T) {
	dir := t.TempDir()
	bars := "date,open,high,low,close\n2024-01-02,200,210,190,200\n2024-01-03,100,105,95,100\n"
	splits := "date,ratio\n2024-01-03,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(bars), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "splits.csv"), []byte(splits), 0644))

	cfg := Default()
	cfg.Instruments[0] = InstrumentConfig{ID: "SPY", Bars: "SPY.csv", Splits: "splits.csv"}
	cfg.Resolve(dir)

	sets, err := cfg.LoadBars()
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Equal(t, 2, sets[0].Len())
	assert.InDelta(t, 100, sets[0].Bars[0].Close, 1e-9)
	assert.InDelta(t, 100, sets[0].Bars[1].Close, 1e-9)
}

func TestRates(t *testing.T) {
	cfg := Default()
	rs, err := cfg.Rates()
	require.NoError(t, err)
	assert.Nil(t, rs)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rates.csv"), []byte("date,rate\n2024-01-01,0.04\n"), 0644))
	cfg.Options = &OverlayConfig{Config: options.DefaultConfig(), RatesFile: filepath.Join(dir, "rates.csv")}
	rs, err = cfg.Rates()
	require.NoError(t, err)
	require.NotNil(t, rs)
}

func TestParsePartialOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
instruments:
  - id: SPY
    bars: /data/SPY.csv
strategy:
  low_ibs: 0.1
  high_ibs: 0.75
  max_hold_days: 10
  initial_capital: 10000
options:
  vol_window: 5
  rates_file: rates.csv
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Options)
	d := options.DefaultConfig()
	assert.Equal(t, 5, cfg.Options.VolWindow)
	assert.Equal(t, d.InitialCapital, cfg.Options.InitialCapital)
	assert.Equal(t, d.CapitalPct, cfg.Options.CapitalPct)
	assert.Equal(t, d.ExpiryDays, cfg.Options.ExpiryDays)
	assert.Equal(t, "rates.csv", cfg.Options.RatesFile)
}

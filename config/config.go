// Package config reads and writes backtest run files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/options"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// Config is a complete backtest run: which series to load, how to trade
// them, the optional options overlay and where to journal the result.
type Config struct {
	Name        string             `json:"name,omitempty" yaml:"name,omitempty"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Strategy    strategy.Config    `json:"strategy" yaml:"strategy"`
	Options     *OverlayConfig     `json:"options,omitempty" yaml:"options,omitempty"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
}

// InstrumentConfig points at one daily bar CSV and its optional splits.
type InstrumentConfig struct {
	ID     string `json:"id" yaml:"id"`
	Bars   string `json:"bars" yaml:"bars"`
	Splits string `json:"splits,omitempty" yaml:"splits,omitempty"`
}

// OverlayConfig enables the options overlay.
type OverlayConfig struct {
	options.Config `yaml:",inline"`
	RatesFile      string `json:"rates_file,omitempty" yaml:"rates_file,omitempty"`
}

const (
	JournalNone   = "none"
	JournalSQLite = "sqlite"
	JournalCSV    = "csv"
)

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "none", "sqlite" or "csv"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoadFromFile loads a run file, YAML first with JSON as fallback.
// Relative paths in the file are resolved against its directory.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a run file held in memory.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = &Config{}
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	cfg.Strategy = cfg.Strategy.Normalize()
	if cfg.Options != nil {
		cfg.Options.Config = cfg.Options.Config.Normalize()
	}
	if cfg.Journal.Type == "" {
		cfg.Journal.Type = JournalNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve makes every relative file path absolute against base.
func (c *Config) Resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range c.Instruments {
		c.Instruments[i].Bars = abs(c.Instruments[i].Bars)
		c.Instruments[i].Splits = abs(c.Instruments[i].Splits)
	}
	if c.Options != nil {
		c.Options.RatesFile = abs(c.Options.RatesFile)
	}
	c.Journal.DBPath = abs(c.Journal.DBPath)
	c.Journal.Dir = abs(c.Journal.Dir)
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the run file. Strategy and overlay problems come back
// as *strategy.ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, in := range c.Instruments {
		if in.ID == "" {
			return fmt.Errorf("instruments[%d].id is required", i)
		}
		if seen[in.ID] {
			return fmt.Errorf("duplicate instrument %q", in.ID)
		}
		seen[in.ID] = true
		if in.Bars == "" {
			return fmt.Errorf("instruments[%d].bars is required", i)
		}
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	for k := range c.Strategy.Allocation.Shares {
		if !seen[k] {
			return &strategy.ConfigurationError{Field: "allocation.shares." + k, Reason: "not a configured instrument"}
		}
	}
	if c.Options != nil {
		if err := c.Options.Validate(); err != nil {
			return err
		}
	}
	switch c.Journal.Type {
	case JournalNone, "":
	case JournalSQLite:
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case JournalCSV:
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'sqlite' or 'csv'")
	}
	return nil
}

// LoadBars reads every instrument's bars and applies its splits.
func (c *Config) LoadBars() ([]*market.BarSet, error) {
	out := make([]*market.BarSet, 0, len(c.Instruments))
	for _, in := range c.Instruments {
		bs, err := market.LoadBarsCSV(in.ID, in.Bars)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", in.ID, err)
		}
		if in.Splits != "" {
			splits, err := market.LoadSplitsCSV(in.Splits)
			if err != nil {
				return nil, fmt.Errorf("instrument %s: %w", in.ID, err)
			}
			if bs, err = market.ApplySplits(bs, splits); err != nil {
				return nil, fmt.Errorf("instrument %s: %w", in.ID, err)
			}
		}
		out = append(out, bs)
	}
	return out, nil
}

// Rates returns the overlay's rate table, or nil when none is configured.
func (c *Config) Rates() (options.RateSource, error) {
	if c.Options == nil || c.Options.RatesFile == "" {
		return nil, nil
	}
	tbl, err := options.LoadRateTable(c.Options.RatesFile)
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	return tbl, nil
}

// Default returns a single-instrument run with the classic IBS settings.
func Default() *Config {
	return &Config{
		Name: "ibs-spy",
		Instruments: []InstrumentConfig{
			{ID: "SPY", Bars: "data/SPY.csv"},
		},
		Strategy: strategy.Default(),
		Journal: JournalConfig{
			Type:   JournalSQLite,
			DBPath: "stonks.db",
		},
	}
}

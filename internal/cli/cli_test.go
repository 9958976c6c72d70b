package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file="}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// writeBars writes a daily CSV whose IBS dips below 0.1 on bar 4 and
// recovers above 0.75 on bar 5.
func writeBars(t *testing.T, dir string) string {
	t.Helper()
	ibs := []float64{0.5, 0.5, 0.5, 0.5, 0.05, 0.9, 0.5, 0.5}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	price := 100.0
	for i, v := range ibs {
		if i%2 == 1 {
			price *= 1.02
		} else if i > 0 {
			price *= 0.99
		}
		low := price - v*10
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,1000\n", day.AddDate(0, 0, i).Format("2006-01-02"), price, low+10, low, price)
	}
	path := filepath.Join(dir, "spy.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func writeRunFile(t *testing.T, dir, journalBlock string) string {
	t.Helper()
	writeBars(t, dir)
	body := `name: cli-test
instruments:
  - id: SPY
    bars: spy.csv
strategy:
  low_ibs: 0.1
  high_ibs: 0.75
  max_hold_days: 5
  initial_capital: 10000
  allocation:
    kind: pooled
` + journalBlock
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stonks (dev)\n", out)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Run file valid")
	assert.Contains(t, out, "Instrument: SPY")

	out, err = execute(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Journal: sqlite")

	_, err = execute(t, "config", "validate")
	assert.Error(t, err)
}

func TestBacktestRecordsRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	run := writeRunFile(t, dir, "journal:\n  type: sqlite\n  db_path: runs.db\n")

	out, err := execute(t, "backtest", "-c", run, "--trades")
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Trades:        1")
	assert.Contains(t, out, "SPY-0001")

	j, err := journal.NewSQLite(db)
	require.NoError(t, err)
	runs, err := j.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.Len(t, runs, 1)
	runID := runs[0].RunID
	assert.Equal(t, "cli-test", runs[0].Name)

	out, err = execute(t, "--db", db, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, runID)

	out, err = execute(t, "--db", db, "runs", "show", runID, "--trades")
	require.NoError(t, err)
	assert.Contains(t, out, "Run ID:        "+runID)
	assert.Contains(t, out, "SPY-0001")

	out, err = execute(t, "--db", db, "runs", "show", runID, "--org")
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: IBS SPY")

	csvDir := filepath.Join(dir, "export")
	_, err = execute(t, "--db", db, "runs", "show", runID, "--csv", csvDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(csvDir, runID+"_trades.csv"))
	assert.FileExists(t, filepath.Join(csvDir, runID+"_equity.csv"))

	_, err = execute(t, "--db", db, "runs", "show", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestBacktestJSONWithOverlay(t *testing.T) {
	dir := t.TempDir()
	run := writeRunFile(t, dir, "options:\n  vol_window: 3\n  capital_pct: 20\n")

	out, err := execute(t, "backtest", "-c", run, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"trades"`)
	assert.Contains(t, out, `"overlay"`)
	assert.NotContains(t, out, `"run_id"`)
}

func TestBacktestErrors(t *testing.T) {
	_, err := execute(t, "backtest")
	assert.Error(t, err)

	dir := t.TempDir()
	run := writeRunFile(t, dir, "")
	require.NoError(t, os.Remove(filepath.Join(dir, "spy.csv")))
	_, err = execute(t, "backtest", "-c", run)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", fmt.Errorf("wrap: %w", &strategy.ConfigurationError{Field: "low_ibs"}), 2},
		{"data", &market.DataValidityError{Instrument: "SPY"}, 3},
		{"no bars", backtest.ErrNoBars, 3},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestLoadEnv(t *testing.T) {
	for env := range envFlags {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STONKS_ADDR=:9999\nSTONKS_LOG_LEVEL=debug\nSTONKS_DB=/tmp/x.db\n"), 0644))

	var addr, level, db string
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&addr, "addr", ":8080", "")
	flags.StringVar(&level, "log-level", "info", "")
	flags.StringVar(&db, "db", "./stonks.db", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "warn"}))

	require.NoError(t, loadEnv(path, flags))
	assert.Equal(t, ":9999", addr)
	assert.Equal(t, "warn", level)
	assert.Equal(t, "/tmp/x.db", db)

	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), "missing.env"), flags))
}

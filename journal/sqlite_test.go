package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/metrics"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func testRun(t *testing.T, name string) Run {
	t.Helper()

	res := &backtest.Result{
		Instruments:    []string{"QQQ", "SPY"},
		Start:          day0,
		End:            day0.AddDate(0, 0, 3),
		InitialCapital: 10000,
		FinalValue:     10250,
		Trades: []backtest.Trade{
			{ID: "SPY-0001", Instrument: "SPY", EntryDate: day0, ExitDate: day0.AddDate(0, 0, 2), EntryPrice: 100, ExitPrice: 102.5, Quantity: 100, PnL: 250, PnLPercent: 2.5, DurationDays: 2, ExitReason: backtest.ExitIndicator, CapitalAfterExit: 10250},
		},
		Equity: []backtest.EquityPoint{
			{Date: day0, Value: 10000, InvestedCost: 10000},
			{Date: day0.AddDate(0, 0, 1), Value: 9900, InvestedCost: 9900, DrawdownPct: 1},
			{Date: day0.AddDate(0, 0, 2), Value: 10250, FreeCapital: 10250},
			{Date: day0.AddDate(0, 0, 3), Value: 10250, FreeCapital: 10250},
		},
	}
	run, err := NewRun(name, strategy.Default(), res, metrics.Summarize(res))
	require.NoError(t, err)
	return run
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordAndLoadRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	defer j.Close()

	run := testRun(t, "smoke")
	require.NoError(t, j.RecordRun(ctx, run))

	got, err := j.LoadRun(ctx, run.Record.RunID)
	require.NoError(t, err)

	rec := got.Record
	assert.Equal(t, run.Record.RunID, rec.RunID)
	assert.Equal(t, "smoke", rec.Name)
	assert.Equal(t, []string{"QQQ", "SPY"}, rec.Instruments)
	assert.Equal(t, "pooled", rec.Policy)
	assert.True(t, rec.Start.Equal(day0))
	assert.True(t, rec.End.Equal(day0.AddDate(0, 0, 3)))
	assert.InDelta(t, 250, rec.NetProfit, 1e-9)
	assert.InDelta(t, 1, rec.MaxDDPct, 1e-9)
	assert.Equal(t, 1, rec.Trades)
	assert.Equal(t, 1, rec.Wins)

	var cfg strategy.Config
	require.NoError(t, json.Unmarshal(rec.Config, &cfg))
	assert.Equal(t, strategy.Default(), cfg)

	require.Len(t, got.Trades, 1)
	tr := got.Trades[0]
	assert.Equal(t, "SPY-0001", tr.TradeID)
	assert.Equal(t, "indicator_signal", tr.Reason)
	assert.True(t, tr.ExitDate.Equal(day0.AddDate(0, 0, 2)))
	assert.InDelta(t, 10250, tr.CapitalAfterExit, 1e-9)

	require.Len(t, got.Equity, 4)
	for i, e := range got.Equity {
		assert.True(t, e.Date.Equal(run.Equity[i].Date))
		assert.InDelta(t, run.Equity[i].Value, e.Value, 1e-9)
	}
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetRun(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	defer j.Close()

	first := testRun(t, "first")
	second := testRun(t, "second")
	second.Record.Created = first.Record.Created.Add(time.Minute)
	require.NoError(t, j.RecordRun(ctx, first))
	require.NoError(t, j.RecordRun(ctx, second))

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Name)
	assert.Equal(t, "first", runs[1].Name)

	runs, err = j.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "second", runs[0].Name)
}

func TestSQLiteRecordRunIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	defer j.Close()

	run := testRun(t, "dup")
	// duplicate trade ids break the primary key half way through
	run.Trades = append(run.Trades, run.Trades[0])
	assert.Error(t, j.RecordRun(ctx, run))

	_, err := j.GetRun(ctx, run.Record.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDeleteRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	defer j.Close()

	run := testRun(t, "gone")
	require.NoError(t, j.RecordRun(ctx, run))
	require.NoError(t, j.DeleteRun(ctx, run.Record.RunID))

	trades, err := j.ListTradesByRunID(ctx, run.Record.RunID)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.ErrorIs(t, j.DeleteRun(ctx, run.Record.RunID), ErrNotFound)
}

package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	run := testRun(t, "org")
	out, err := FormatRunOrg(run.Record)
	require.NoError(t, err)

	assert.Contains(t, out, "* BACKTEST: IBS QQQ, SPY")
	assert.Contains(t, out, ":RUN_ID:      "+run.Record.RunID)
	assert.Contains(t, out, ":NAME:        org")
	assert.Contains(t, out, ":START_DATE:  2024-01-02")
	assert.Contains(t, out, ":END_BAL:     10250.00")
	assert.Contains(t, out, `"low_ibs":0.1`)
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	run := testRun(t, "org")
	out := FormatTradeOrg(run.Trades[0])

	assert.Contains(t, out, "** Trade: SPY (SPY-0001)")
	assert.Contains(t, out, ":ENTRY: 2024-01-02 @ 100.0000")
	assert.Contains(t, out, ":EXIT: 2024-01-04 @ 102.5000")
	assert.Contains(t, out, ":PNL: 250.00")
	assert.Contains(t, out, ":REASON: indicator_signal")
	assert.Contains(t, out, ":END:")
}

func TestFormatRunOrgWithTrades(t *testing.T) {
	t.Parallel()

	out, err := FormatRunOrgWithTrades(testRun(t, "org"))
	require.NoError(t, err)
	assert.Contains(t, out, "** Trades")
	assert.Contains(t, out, "*** Trade: SPY (SPY-0001)")
}

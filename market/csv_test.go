package market

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsCSV(t *testing.T) {
	data := `date,open,high,low,close,volume,adj_close
2024-01-03,101,103,100,102,2000,
2024-01-02,100,102,99,101,1000,100.5
2024-01-02,0,0,0,0,0,0
`
	bs, err := ReadBarsCSV("SPY", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 2, bs.Len())

	first := bs.Bars[0]
	assert.True(t, first.Date.Equal(d(2024, 1, 2)))
	assert.Equal(t, 101.0, first.Close)
	assert.Equal(t, 100.5, first.AdjClose)
	assert.Equal(t, 1000.0, first.Volume)

	// adj_close falls back to close
	assert.Equal(t, 102.0, bs.Bars[1].AdjClose)
	assert.Equal(t, 1, bs.Stats().Duplicates)
}

func TestReadBarsCSVWithoutOptionalColumns(t *testing.T) {
	data := "date,open,high,low,close\n2024-01-02T00:00:00Z,1,2,0.5,1.5\n"
	bs, err := ReadBarsCSV("X", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, bs.Len())
	assert.Equal(t, 1.5, bs.Bars[0].AdjClose)
}

func TestReadBarsCSVBadNumber(t *testing.T) {
	data := "date,open,high,low,close\n2024-01-02,1,abc,0.5,1.5\n"
	_, err := ReadBarsCSV("X", strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad high")
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-01", "2024-03-01T15:30:00Z", "2024-03-01 09:30:00", "03/01/2024"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(d(2024, 3, 1)), s)
	}
	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestLoadBarsAndSplitsFromFile(t *testing.T) {
	dir := t.TempDir()
	bars := filepath.Join(dir, "aapl.csv")
	splits := filepath.Join(dir, "splits.csv")

	require.NoError(t, os.WriteFile(bars, []byte("date,open,high,low,close,volume\n2020-08-28,500,510,490,500,10\n2020-08-31,125,130,120,128,40\n"), 0644))
	require.NoError(t, os.WriteFile(splits, []byte("date,ratio\n2020-08-31,4\n"), 0644))

	bs, err := LoadBarsCSV("AAPL", bars)
	require.NoError(t, err)
	assert.Equal(t, bars, bs.Source)

	ss, err := LoadSplitsCSV(splits)
	require.NoError(t, err)
	require.Len(t, ss, 1)
	assert.Equal(t, 4.0, ss[0].Ratio)

	adj, err := ApplySplits(bs, ss)
	require.NoError(t, err)
	assert.Equal(t, 125.0, adj.Bars[0].Close)
	assert.Equal(t, 40.0, adj.Bars[0].Volume)
	assert.Equal(t, 128.0, adj.Bars[1].Close, "post-split bar untouched")
	assert.Equal(t, 500.0, bs.Bars[0].Close, "source set untouched")
}

func TestApplySplitsRejectsBadRatio(t *testing.T) {
	bs := NewBarSet("X", []Bar{{Date: d(2024, 1, 2), Close: 1}})
	_, err := ApplySplits(bs, []Split{{Date: d(2024, 1, 3), Ratio: 0}})
	assert.Error(t, err)
}

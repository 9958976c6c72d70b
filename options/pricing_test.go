package options

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackScholesCall(t *testing.T) {
	tests := []struct {
		name                string
		s, k, years, r, vol float64
		want                float64
	}{
		{"at the money one year", 100, 100, 1, 0.05, 0.2, 10.4506},
		{"out of the money", 100, 110, 0.5, 0.03, 0.25, 3.8986},
		{"expired in the money", 100, 90, 0, 0.05, 0.2, 10},
		{"expired out of the money", 100, 110, 0, 0.05, 0.2, 0},
		{"no volatility", 100, 90, 1, 0.05, 0, 100 - 90*math.Exp(-0.05)},
		{"nan spot", math.NaN(), 100, 1, 0.05, 0.2, 0},
		{"infinite vol", 100, 100, 1, 0.05, math.Inf(1), 0},
		{"zero strike", 100, 0, 1, 0.05, 0.2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BlackScholesCall(tt.s, tt.k, tt.years, tt.r, tt.vol), 1e-3)
		})
	}
}

func TestBlackScholesMonotoneInVolatility(t *testing.T) {
	prev := 0.0
	for _, vol := range []float64{0.05, 0.1, 0.2, 0.4, 0.8} {
		p := BlackScholesCall(100, 105, 0.25, 0.02, vol)
		assert.Greater(t, p, prev)
		prev = p
	}
}

func TestIntrinsic(t *testing.T) {
	assert.Equal(t, 5.0, Intrinsic(105, 100))
	assert.Equal(t, 0.0, Intrinsic(95, 100))
	assert.Equal(t, 0.0, Intrinsic(math.NaN(), 100))
}

func TestRateTable(t *testing.T) {
	in := "date,rate\n2024-03-01,5.25\n2024-01-01,0.05\n2024-02-01,4.5\n"
	tbl, err := ReadRateTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	_, ok := tbl.Rate(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	r, ok := tbl.Rate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.InDelta(t, 0.05, r, 1e-12)

	r, _ = tbl.Rate(time.Date(2024, 2, 1, 13, 0, 0, 0, time.UTC))
	assert.InDelta(t, 0.045, r, 1e-12)

	r, _ = tbl.Rate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 0.0525, r, 1e-12)
}

func TestRateTableBadRow(t *testing.T) {
	_, err := ReadRateTable(strings.NewReader("date,rate\n2024-01-01,abc\n"))
	assert.ErrorContains(t, err, "row 2")
}

func TestConstantRate(t *testing.T) {
	r, ok := ConstantRate(0.03).Rate(time.Time{})
	assert.True(t, ok)
	assert.Equal(t, 0.03, r)
}

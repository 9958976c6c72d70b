package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one daily OHLCV row. Prices are already split-adjusted when the
// bar reaches the backtester.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	AdjClose float64
}

// Range returns High - Low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Valid reports whether the bar has finite prices, High >= Low and a close
// inside the day's range.
func (b Bar) Valid() bool {
	return b.Check() == nil
}

// Check returns the reason a bar is not valid, or nil.
func (b Bar) Check() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite price")
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("high %.4f below low %.4f", b.High, b.Low)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("close %.4f outside [%.4f, %.4f]", b.Close, b.Low, b.High)
	}
	return nil
}

// Day truncates t to midnight UTC. All bar dates are normalized this way so
// calendars built from different instruments line up.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DataValidityError reports a bar that breaks the OHLC invariants.
type DataValidityError struct {
	Instrument string
	Date       time.Time
	Reason     string
}

func (e *DataValidityError) Error() string {
	return fmt.Sprintf("invalid bar %s %s: %s", e.Instrument, e.Date.Format("2006-01-02"), e.Reason)
}

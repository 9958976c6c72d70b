package market

import (
	"fmt"
	"time"
)

// Split is a share split effective on Date. Ratio 4 means one old share
// became four new ones.
type Split struct {
	Date  time.Time
	Ratio float64
}

// ApplySplits returns a copy of bs where every bar dated before a split has
// its prices divided (and volume multiplied) by the split ratio, so the
// whole series is expressed in post-split shares.
func ApplySplits(bs *BarSet, splits []Split) (*BarSet, error) {
	for _, s := range splits {
		if s.Ratio <= 0 {
			return nil, fmt.Errorf("split %s: ratio must be positive, got %v", s.Date.Format("2006-01-02"), s.Ratio)
		}
	}

	out := &BarSet{
		Instrument: bs.Instrument,
		Source:     bs.Source,
		Bars:       make([]Bar, len(bs.Bars)),
		duplicates: bs.duplicates,
		unsorted:   bs.unsorted,
	}
	copy(out.Bars, bs.Bars)

	for _, s := range splits {
		eff := Day(s.Date)
		for i := range out.Bars {
			b := &out.Bars[i]
			if !b.Date.Before(eff) {
				break
			}
			b.Open /= s.Ratio
			b.High /= s.Ratio
			b.Low /= s.Ratio
			b.Close /= s.Ratio
			b.AdjClose /= s.Ratio
			b.Volume *= s.Ratio
		}
	}
	return out, nil
}

package options

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/whiterabbit74/stonks-sub003/market"
)

// RateSource supplies the annual risk-free rate (0.05 = 5%) in effect on a
// date. ok is false when the source has nothing for that date.
type RateSource interface {
	Rate(date time.Time) (float64, bool)
}

// ConstantRate is the same rate on every date.
type ConstantRate float64

func (c ConstantRate) Rate(time.Time) (float64, bool) { return float64(c), true }

// RatePoint is one observation of a rate table.
type RatePoint struct {
	Date time.Time
	Rate float64
}

// RateTable answers with the most recent observation on or before the
// requested date.
type RateTable struct {
	points []RatePoint
}

// NewRateTable sorts points by date. Later duplicates replace earlier ones.
func NewRateTable(points []RatePoint) *RateTable {
	ps := make([]RatePoint, len(points))
	copy(ps, points)
	for i := range ps {
		ps[i].Date = market.Day(ps[i].Date)
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Date.Before(ps[j].Date) })
	out := ps[:0]
	for _, p := range ps {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return &RateTable{points: out}
}

func (t *RateTable) Len() int { return len(t.points) }

func (t *RateTable) Rate(date time.Time) (float64, bool) {
	date = market.Day(date)
	i := sort.Search(len(t.points), func(i int) bool { return t.points[i].Date.After(date) })
	if i == 0 {
		return 0, false
	}
	return t.points[i-1].Rate, true
}

type rateRow struct {
	Date string `csv:"date"`
	Rate string `csv:"rate"`
}

// ReadRateTable parses date,rate rows. Rates above 1 are read as percent
// (4.25 -> 0.0425), which is how treasury yields are usually published.
func ReadRateTable(r io.Reader) (*RateTable, error) {
	var rows []*rateRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	points := make([]RatePoint, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Date) == "" {
			continue
		}
		d, err := market.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("read rates row %d: %w", i+2, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row.Rate), 64)
		if err != nil {
			return nil, fmt.Errorf("read rates row %d: bad rate %q: %w", i+2, row.Rate, err)
		}
		if v > 1 {
			v /= 100
		}
		points = append(points, RatePoint{Date: d, Rate: v})
	}
	return NewRateTable(points), nil
}

// LoadRateTable reads a rate table from a CSV file.
func LoadRateTable(path string) (*RateTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRateTable(f)
}

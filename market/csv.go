package market

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// barRow is the on-disk CSV shape:
//
//	date,open,high,low,close,volume,adj_close
//
// volume and adj_close are optional.
type barRow struct {
	Date     string `csv:"date"`
	Open     string `csv:"open"`
	High     string `csv:"high"`
	Low      string `csv:"low"`
	Close    string `csv:"close"`
	Volume   string `csv:"volume"`
	AdjClose string `csv:"adj_close"`
}

type splitRow struct {
	Date  string `csv:"date"`
	Ratio string `csv:"ratio"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate accepts the date layouts seen in exported daily data.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

func parseFloat(field, s string, optional bool) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" && optional {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", field, s, err)
	}
	return v, nil
}

// ReadBarsCSV parses bars from r. Rows are sorted and de-duplicated by
// NewBarSet; validity is left to the caller's policy.
func ReadBarsCSV(instrument string, r io.Reader) (*BarSet, error) {
	var rows []*barRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read bars %s: %w", instrument, err)
	}

	bars := make([]Bar, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Date) == "" {
			continue
		}
		b, err := row.bar()
		if err != nil {
			return nil, fmt.Errorf("read bars %s row %d: %w", instrument, i+2, err)
		}
		bars = append(bars, b)
	}
	bs := NewBarSet(instrument, bars)
	bs.Source = "csv"
	return bs, nil
}

func (row *barRow) bar() (Bar, error) {
	var (
		b   Bar
		err error
	)
	if b.Date, err = ParseDate(row.Date); err != nil {
		return b, err
	}
	if b.Open, err = parseFloat("open", row.Open, false); err != nil {
		return b, err
	}
	if b.High, err = parseFloat("high", row.High, false); err != nil {
		return b, err
	}
	if b.Low, err = parseFloat("low", row.Low, false); err != nil {
		return b, err
	}
	if b.Close, err = parseFloat("close", row.Close, false); err != nil {
		return b, err
	}
	if b.Volume, err = parseFloat("volume", row.Volume, true); err != nil {
		return b, err
	}
	if b.AdjClose, err = parseFloat("adj_close", row.AdjClose, true); err != nil {
		return b, err
	}
	if b.AdjClose == 0 {
		b.AdjClose = b.Close
	}
	return b, nil
}

// LoadBarsCSV opens path and reads it with ReadBarsCSV.
func LoadBarsCSV(instrument, path string) (*BarSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bs, err := ReadBarsCSV(instrument, f)
	if err != nil {
		return nil, err
	}
	bs.Source = path
	return bs, nil
}

// LoadSplitsCSV reads date,ratio rows.
func LoadSplitsCSV(path string) ([]Split, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*splitRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read splits: %w", err)
	}
	out := make([]Split, 0, len(rows))
	for _, row := range rows {
		d, err := ParseDate(row.Date)
		if err != nil {
			return nil, err
		}
		r, err := parseFloat("ratio", row.Ratio, false)
		if err != nil {
			return nil, err
		}
		out = append(out, Split{Date: d, Ratio: r})
	}
	return out, nil
}

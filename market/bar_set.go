package market

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// BarSet is the ascending, de-duplicated daily series of one instrument.
type BarSet struct {
	Instrument string
	Source     string
	Bars       []Bar

	duplicates int
	unsorted   bool
}

// NewBarSet sorts bars ascending by date and drops repeated dates
// (keep-first policy). The input slice is not modified.
func NewBarSet(instrument string, bars []Bar) *BarSet {
	bs := &BarSet{Instrument: instrument}

	out := make([]Bar, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Date = Day(out[i].Date)
	}
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) }) {
		bs.unsorted = true
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	}

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			bs.duplicates++
			continue
		}
		dedup = append(dedup, b)
	}
	bs.Bars = dedup
	return bs
}

func (bs *BarSet) Len() int { return len(bs.Bars) }

// Index returns the position of date in the set, or -1.
func (bs *BarSet) Index(date time.Time) int {
	date = Day(date)
	i := sort.Search(len(bs.Bars), func(i int) bool { return !bs.Bars[i].Date.Before(date) })
	if i < len(bs.Bars) && bs.Bars[i].Date.Equal(date) {
		return i
	}
	return -1
}

// Closes returns the close series.
func (bs *BarSet) Closes() []float64 {
	out := make([]float64, len(bs.Bars))
	for i, b := range bs.Bars {
		out[i] = b.Close
	}
	return out
}

// ValidCloses returns the close series with each invalid bar replaced by
// the last valid close, or NaN before the first one.
func (bs *BarSet) ValidCloses() []float64 {
	out := make([]float64, len(bs.Bars))
	last := math.NaN()
	for i, b := range bs.Bars {
		if b.Valid() {
			last = b.Close
		}
		out[i] = last
	}
	return out
}

// Validate returns the first invalid bar as a *DataValidityError.
func (bs *BarSet) Validate() error {
	for _, b := range bs.Bars {
		if err := b.Check(); err != nil {
			return &DataValidityError{Instrument: bs.Instrument, Date: b.Date, Reason: err.Error()}
		}
	}
	return nil
}

// Stats summarises ingest problems and gaps in the series.
type Stats struct {
	Bars       int
	Invalid    int
	Duplicates int
	Unsorted   bool
	First      time.Time
	Last       time.Time
	LongestGap int // calendar days between consecutive bars
	Gaps       int // gaps longer than a long weekend
}

func (bs *BarSet) Stats() Stats {
	s := Stats{
		Bars:       len(bs.Bars),
		Duplicates: bs.duplicates,
		Unsorted:   bs.unsorted,
	}
	if len(bs.Bars) == 0 {
		return s
	}
	s.First = bs.Bars[0].Date
	s.Last = bs.Bars[len(bs.Bars)-1].Date
	for i, b := range bs.Bars {
		if !b.Valid() {
			s.Invalid++
		}
		if i == 0 {
			continue
		}
		gap := int(b.Date.Sub(bs.Bars[i-1].Date).Hours() / 24)
		if gap > s.LongestGap {
			s.LongestGap = gap
		}
		// Fri -> Tue around a holiday is 4 days.
		if gap > 4 {
			s.Gaps++
		}
	}
	return s
}

func (bs *BarSet) PrintStats(w io.Writer) {
	s := bs.Stats()
	fmt.Fprintf(w, "---- %s ----\n", bs.Instrument)
	if s.Bars == 0 {
		fmt.Fprintln(w, "no bars")
		return
	}
	fmt.Fprintf(w, "Range:       %s → %s\n", s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"))
	fmt.Fprintf(w, "Bars:        %d\n", s.Bars)
	fmt.Fprintf(w, "Invalid:     %d\n", s.Invalid)
	fmt.Fprintf(w, "Duplicates:  %d\n", s.Duplicates)
	fmt.Fprintf(w, "Gaps:        %d (longest %d days)\n", s.Gaps, s.LongestGap)
}

// Iterator walks the bars in order.
type Iterator struct {
	bs  *BarSet
	idx int
}

func (bs *BarSet) Iterator() *Iterator {
	return &Iterator{bs: bs, idx: -1}
}

func (it *Iterator) Next() bool {
	it.idx++
	return it.idx < len(it.bs.Bars)
}

func (it *Iterator) Bar() Bar        { return it.bs.Bars[it.idx] }
func (it *Iterator) Index() int      { return it.idx }
func (it *Iterator) Time() time.Time { return it.bs.Bars[it.idx].Date }

// Calendar returns the sorted union of all dates across the sets.
func Calendar(sets ...*BarSet) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, bs := range sets {
		for _, b := range bs.Bars {
			if _, ok := seen[b.Date]; ok {
				continue
			}
			seen[b.Date] = struct{}{}
			out = append(out, b.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

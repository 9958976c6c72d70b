package backtest

import (
	"math"

	"github.com/whiterabbit74/stonks-sub003/indicators"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

type state int8

const (
	flat state = iota
	holding
)

type signalKind int8

const (
	noSignal signalKind = iota
	enterSignal
	exitSignal
)

type signal struct {
	kind   signalKind
	reason ExitReason
	ibs    float64
}

// machine is the FLAT/HOLDING lifecycle of one instrument. It only
// decides; the accountant commits entries and exits.
type machine struct {
	bars *market.BarSet
	ibs  []float64
	cfg  strategy.Config

	state state
	pos   Position
	held  int // valid bars seen since entry

	cursor int // next bar index to consume

	mark    float64 // last valid close, used for mark-to-market
	hasMark bool
}

func newMachine(bs *market.BarSet, cfg strategy.Config) *machine {
	return &machine{
		bars: bs,
		ibs:  indicators.IBSSeries(bs.Bars),
		cfg:  cfg,
	}
}

func (m *machine) id() string { return m.bars.Instrument }

func (m *machine) last(idx int) bool { return idx == len(m.bars.Bars)-1 }

// evaluate returns what the strategy wants to do on bar idx. Bars whose
// IBS is undefined never produce an indicator decision.
func (m *machine) evaluate(idx int) signal {
	v := m.ibs[idx]
	defined := !math.IsNaN(v)

	switch m.state {
	case holding:
		if defined && v > m.cfg.HighIBS {
			return signal{kind: exitSignal, reason: ExitIndicator, ibs: v}
		}
		if m.held >= m.cfg.MaxHoldDays {
			return signal{kind: exitSignal, reason: ExitMaxHold, ibs: v}
		}
	case flat:
		// No entries on the final bar: a trade always spans at least one bar.
		if defined && v < m.cfg.LowIBS && !m.last(idx) {
			return signal{kind: enterSignal, ibs: v}
		}
	}
	return signal{}
}

func (m *machine) open(p Position) {
	m.state = holding
	m.pos = p
	m.held = 0
}

// advance counts one more bar held. Skipped invalid bars do not call it,
// so they never move the max-hold clock.
func (m *machine) advance() {
	if m.state == holding {
		m.held++
	}
}

func (m *machine) close() Position {
	p := m.pos
	m.state = flat
	m.pos = Position{}
	m.held = 0
	return p
}

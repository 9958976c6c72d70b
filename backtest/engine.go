// Package backtest runs the IBS mean-reversion strategy over one or more
// daily bar series sharing one capital pool.
//
// The run is a single deterministic pass over the unified calendar of all
// instruments. For every date:
//  1. apply the monthly contribution, if due
//  2. update marks and evaluate exits for every instrument with a bar
//  3. evaluate entries under the configured allocation policy
//  4. mark to market, append the equity point, back-fill today's trades
package backtest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// Engine holds a validated configuration. It keeps no state between runs;
// each Run gets its own accountant and machines.
type Engine struct {
	cfg strategy.Config
	log logrus.FieldLogger
}

type Option func(*Engine)

// WithLogger routes skipped-signal and invalid-bar diagnostics to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewEngine normalizes and validates cfg. A bad configuration returns a
// *strategy.ConfigurationError.
func NewEngine(cfg strategy.Config, opts ...Option) (*Engine, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, log: discardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() strategy.Config { return e.cfg }

// RunSingle backtests one instrument against a fresh portfolio.
func (e *Engine) RunSingle(bs *market.BarSet) (*Result, error) {
	return e.Run(NewPortfolio(e.cfg.InitialCapital), bs)
}

// Run executes the backtest over sets, mutating state. Instruments are
// processed in identifier order on every date.
func (e *Engine) Run(state *PortfolioState, sets ...*market.BarSet) (*Result, error) {
	if state == nil {
		return nil, fmt.Errorf("backtest: nil portfolio state")
	}
	if state.InvestedCost != 0 {
		return nil, fmt.Errorf("backtest: portfolio must start in cash, has %.2f invested", state.InvestedCost)
	}
	if state.FreeCapital <= 0 {
		return nil, &strategy.ConfigurationError{Field: "initial_capital", Reason: fmt.Sprintf("portfolio has no cash (%.2f)", state.FreeCapital)}
	}
	state.TotalValue = state.FreeCapital

	machines, err := e.machines(sets)
	if err != nil {
		return nil, err
	}
	calendar := market.Calendar(barSets(machines)...)
	if len(calendar) == 0 {
		return nil, ErrNoBars
	}

	ids := make([]string, len(machines))
	for i, m := range machines {
		ids[i] = m.id()
	}

	acct := newAccountant(e.cfg, state, calendar[0])
	res := &Result{
		Instruments:    ids,
		Start:          calendar[0],
		End:            calendar[len(calendar)-1],
		InitialCapital: state.TotalValue,
	}

	today := make([]*machine, 0, len(machines))
	idx := make(map[*machine]int, len(machines))

	for _, date := range calendar {
		acct.beginDay()
		if acct.contribute(date) {
			e.log.WithFields(logrus.Fields{"date": date.Format("2006-01-02"), "amount": e.cfg.Contribution.Amount}).Debug("monthly contribution")
		}

		today = today[:0]
		for _, m := range machines {
			if m.cursor < len(m.bars.Bars) && m.bars.Bars[m.cursor].Date.Equal(date) {
				i := m.cursor
				m.cursor++
				bar := m.bars.Bars[i]
				if !bar.Valid() {
					res.InvalidBars++
					e.log.WithFields(logrus.Fields{"instrument": m.id(), "date": date.Format("2006-01-02")}).Debug("skipping invalid bar")
					// an invalid final bar still ends the series
					if m.state == holding && m.last(i) && m.hasMark {
						m.advance()
						acct.close(m, i, m.mark, ExitEndOfData, math.NaN())
					}
					continue
				}
				m.mark, m.hasMark = bar.Close, true
				m.advance()
				idx[m] = i
				today = append(today, m)
			}
		}

		// exits first, so freed capital is available to today's entries
		exited := make(map[*machine]bool)
		for _, m := range today {
			if m.state != holding {
				continue
			}
			i := idx[m]
			if sig := m.evaluate(i); sig.kind == exitSignal {
				acct.close(m, i, m.bars.Bars[i].Close, sig.reason, sig.ibs)
				exited[m] = true
				continue
			}
			if m.last(i) {
				acct.close(m, i, m.bars.Bars[i].Close, ExitEndOfData, m.ibs[i])
				exited[m] = true
			}
		}

		var candidates []candidate
		for _, m := range today {
			if exited[m] || m.state != flat {
				continue
			}
			if sig := m.evaluate(idx[m]); sig.kind == enterSignal {
				candidates = append(candidates, candidate{m: m, idx: idx[m], sig: sig})
			}
		}
		if len(candidates) > 0 {
			e.enter(acct, machines, candidates, ids, res)
		}

		acct.endDay(date, machines)
	}

	res.Trades = acct.trades
	res.Equity = acct.equity
	res.FinalValue = state.TotalValue
	res.TotalContributed = acct.totalContributed
	res.ContributionCount = acct.contributionCount
	return res, nil
}

type candidate struct {
	m   *machine
	idx int
	sig signal
}

func (e *Engine) enter(acct *accountant, machines []*machine, cands []candidate, ids []string, res *Result) {
	switch e.cfg.Allocation.Kind {
	case strategy.PolicyPooled:
		for _, m := range machines {
			if m.state == holding {
				return
			}
		}
		// candidates are in id order, so strict < keeps the lowest id on ties
		best := cands[0]
		for _, c := range cands[1:] {
			if c.sig.ibs < best.sig.ibs {
				best = c
			}
		}
		if _, ok := acct.open(best.m, best.idx, best.sig, acct.state.FreeCapital); !ok {
			e.skipped(best, res)
		}

	case strategy.PolicyIndependent:
		free, invested := acct.value(machines)
		total := free + invested
		for _, c := range cands {
			share := e.cfg.Allocation.Share(c.m.id(), ids) / 100
			if _, ok := acct.open(c.m, c.idx, c.sig, total*share); !ok {
				e.skipped(c, res)
			}
		}
	}
}

func (e *Engine) skipped(c candidate, res *Result) {
	res.SkippedSignals++
	e.log.WithFields(logrus.Fields{
		"instrument": c.m.id(),
		"date":       c.m.bars.Bars[c.idx].Date.Format("2006-01-02"),
		"ibs":        c.sig.ibs,
	}).Debug("entry skipped: insufficient capital")
}

// machines validates the sets and returns one machine per instrument in
// identifier order. Empty sets are ignored.
func (e *Engine) machines(sets []*market.BarSet) ([]*machine, error) {
	seen := make(map[string]bool, len(sets))
	out := make([]*machine, 0, len(sets))
	for _, bs := range sets {
		if bs == nil {
			continue
		}
		if seen[bs.Instrument] {
			return nil, &strategy.ConfigurationError{Field: "instruments", Reason: fmt.Sprintf("duplicate instrument %q", bs.Instrument)}
		}
		seen[bs.Instrument] = true
		if len(bs.Bars) == 0 {
			e.log.WithField("instrument", bs.Instrument).Warn("no bars, instrument ignored")
			continue
		}
		if e.cfg.InvalidBars == strategy.InvalidBarsAbort {
			if err := bs.Validate(); err != nil {
				return nil, err
			}
		}
		out = append(out, newMachine(bs, e.cfg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id() < out[j].id() })
	return out, nil
}

func barSets(ms []*machine) []*market.BarSet {
	out := make([]*market.BarSet, len(ms))
	for i, m := range ms {
		out[i] = m.bars
	}
	return out
}

// Dates returns the dates of the equity curve.
func (r *Result) Dates() []time.Time {
	out := make([]time.Time, len(r.Equity))
	for i, p := range r.Equity {
		out[i] = p.Date
	}
	return out
}

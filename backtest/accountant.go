package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

// accountant owns every mutation of the PortfolioState: entries, exits,
// contributions and the end-of-day mark.
type accountant struct {
	cfg   strategy.Config
	state *PortfolioState

	seq    int
	trades []Trade
	equity []EquityPoint
	peak   float64

	// first trade index closed on the date being processed
	dayStart int
	injected float64

	due               time.Time // next contribution date
	totalContributed  float64
	contributionCount int
}

func newAccountant(cfg strategy.Config, state *PortfolioState, first time.Time) *accountant {
	a := &accountant{
		cfg:   cfg,
		state: state,
		peak:  state.TotalValue,
	}
	if mc := cfg.Contribution; mc != nil {
		// the first bar's month is funded by the initial capital
		a.due = time.Date(first.Year(), first.Month()+1, mc.DayOfMonth, 0, 0, 0, 0, time.UTC)
	}
	return a
}

// contribute injects the monthly contribution on the first trading day on
// or after the due date. A due date with no trading day before month end
// is paid early the next month. Dates missing for whole months are not
// paid back; the next due date is always after the payment.
func (a *accountant) contribute(date time.Time) bool {
	mc := a.cfg.Contribution
	if mc == nil || date.Before(a.due) {
		return false
	}
	for !a.due.After(date) {
		a.due = a.due.AddDate(0, 1, 0)
	}
	a.injected = mc.Amount
	a.state.FreeCapital += mc.Amount
	a.totalContributed += mc.Amount
	a.contributionCount++
	return true
}

// positionValue is what an open position would return to free capital if
// closed at price: margin plus unrealized P&L minus the exit commission.
// The leverage-financed part of the notional is never ours.
func (a *accountant) positionValue(p Position, price float64) float64 {
	return p.MarginUsed + (price-p.EntryPrice)*p.Quantity - a.cfg.Commission.Leg(price*p.Quantity)
}

// value marks every open position at its latest close.
func (a *accountant) value(machines []*machine) (free, invested float64) {
	for _, m := range machines {
		if m.state == holding && m.hasMark {
			invested += a.positionValue(m.pos, m.mark)
		}
	}
	return a.state.FreeCapital, invested
}

// size returns the quantity to buy at price given the capital basis the
// strategy is allowed to use. When free capital cannot pay the target it
// shrinks the quantity to what fits, commission included, rather than
// dropping the signal; open skips only when not even one share fits.
func (a *accountant) size(basis, price float64) float64 {
	if price <= 0 || basis <= 0 {
		return 0
	}
	target := basis * a.cfg.CapitalUsagePct / 100 * a.cfg.Leverage
	q := math.Floor(target / price)
	if afford := a.cfg.Commission.Affordable(a.state.FreeCapital, price, a.cfg.Leverage); afford < q {
		q = afford
	}
	return q
}

// open debits margin and entry commission. ok is false when not even one
// share fits.
func (a *accountant) open(m *machine, idx int, sig signal, basis float64) (Position, bool) {
	bar := m.bars.Bars[idx]
	q := a.size(basis, bar.Close)
	if q < 1 {
		return Position{}, false
	}
	notional := q * bar.Close
	p := Position{
		Instrument:      m.id(),
		EntryDate:       bar.Date,
		EntryIndex:      idx,
		EntryPrice:      bar.Close,
		Quantity:        q,
		MarginUsed:      notional / a.cfg.Leverage,
		EntryCommission: a.cfg.Commission.Leg(notional),
		EntryIBS:        sig.ibs,
	}
	cost := p.MarginUsed + p.EntryCommission
	if cost > a.state.FreeCapital {
		return Position{}, false
	}
	a.state.FreeCapital -= cost
	m.open(p)
	return p, true
}

// close settles the open position of m at price on bar idx. The round
// trip changes free capital by exactly Trade.PnL.
func (a *accountant) close(m *machine, idx int, price float64, reason ExitReason, exitIBS float64) Trade {
	bar := m.bars.Bars[idx]
	held := m.held
	p := m.close()

	exitComm := a.cfg.Commission.Leg(price * p.Quantity)
	gross := (price - p.EntryPrice) * p.Quantity
	pnl := gross - p.EntryCommission - exitComm

	// margin and entry commission were debited at entry
	a.state.FreeCapital += p.MarginUsed + p.EntryCommission + pnl

	committed := p.MarginUsed + p.EntryCommission
	pct := 0.0
	if committed > 0 {
		pct = pnl / committed * 100
	}

	a.seq++
	t := Trade{
		ID:              fmt.Sprintf("%s-%04d", p.Instrument, a.seq),
		Instrument:      p.Instrument,
		EntryDate:       p.EntryDate,
		ExitDate:        bar.Date,
		EntryPrice:      p.EntryPrice,
		ExitPrice:       price,
		Quantity:        p.Quantity,
		MarginUsed:      p.MarginUsed,
		EntryCommission: p.EntryCommission,
		ExitCommission:  exitComm,
		PnL:             pnl,
		PnLPercent:      pct,
		DurationDays:    held,
		ExitReason:      reason,
		Context: TradeContext{
			EntryIBS:     p.EntryIBS,
			ExitIBS:      exitIBS,
			CalendarDays: int(bar.Date.Sub(p.EntryDate).Hours() / 24),
			Leverage:     a.cfg.Leverage,
		},
	}
	a.trades = append(a.trades, t)
	return t
}

// beginDay marks where the date's closed trades start.
func (a *accountant) beginDay() {
	a.dayStart = len(a.trades)
	a.injected = 0
}

// endDay finalizes the date: recompute invested value and total, append
// the equity point and back-fill every trade that closed today with the
// same final value.
func (a *accountant) endDay(date time.Time, machines []*machine) EquityPoint {
	free, invested := a.value(machines)
	a.state.InvestedCost = invested
	a.state.TotalValue = free + invested

	total := a.state.TotalValue
	if total > a.peak {
		a.peak = total
	}
	dd := 0.0
	if a.peak > 0 {
		dd = (a.peak - total) / a.peak * 100
	}
	pt := EquityPoint{
		Date:         market.Day(date),
		Value:        total,
		FreeCapital:  free,
		InvestedCost: invested,
		DrawdownPct:  dd,
		Contribution: a.injected,
	}
	a.equity = append(a.equity, pt)

	for i := a.dayStart; i < len(a.trades); i++ {
		a.trades[i].CapitalAfterExit = total
	}
	return pt
}

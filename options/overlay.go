package options

import (
	"fmt"
	"io"
	"iter"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/indicators"
	"github.com/whiterabbit74/stonks-sub003/market"
)

// ExitExpired closes an option that reached its expiration before the
// underlying trade exited.
const ExitExpired backtest.ExitReason = "option_expired"

// Position is an open synthetic call bought on an equity trade's entry.
type Position struct {
	TradeID           string    `json:"trade_id"`
	Instrument        string    `json:"instrument"`
	EntryDate         time.Time `json:"entry_date"`
	ExpirationDate    time.Time `json:"expiration_date"`
	Strike            float64   `json:"strike"`
	EntrySpot         float64   `json:"entry_spot"`
	ImpliedVolAtEntry float64   `json:"implied_vol_at_entry"`
	Contracts         float64   `json:"contracts"`
	EntryOptionPrice  float64   `json:"entry_option_price"`
}

// Trade is a closed option position.
type Trade struct {
	Position
	ExitDate        time.Time           `json:"exit_date"`
	ExitSpot        float64             `json:"exit_spot"`
	ExitOptionPrice float64             `json:"exit_option_price"`
	PnL             float64             `json:"pnl"`
	PnLPercent      float64             `json:"pnl_percent"`
	ExitReason      backtest.ExitReason `json:"exit_reason"`
}

type EquityPoint struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Cash      float64   `json:"cash"`
	OpenValue float64   `json:"open_value"`
}

type Result struct {
	InitialCapital float64       `json:"initial_capital"`
	FinalValue     float64       `json:"final_value"`
	Trades         []Trade       `json:"trades"`
	Equity         []EquityPoint `json:"equity"`
	Skipped        int           `json:"skipped"`
}

// Overlay replays closed equity trades as call purchases. It never calls
// back into the equity engine; its only input is the trade stream.
type Overlay struct {
	cfg   Config
	rates RateSource
	log   logrus.FieldLogger
}

type Option func(*Overlay)

// WithRates sets the per-date risk-free rate. Dates it cannot answer fall
// back to Config.DefaultRate.
func WithRates(rs RateSource) Option {
	return func(o *Overlay) { o.rates = rs }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Overlay) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOverlay(cfg Config, opts ...Option) (*Overlay, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	o := &Overlay{cfg: cfg, log: l}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Overlay) Config() Config { return o.cfg }

func (o *Overlay) rate(date time.Time) float64 {
	if o.rates != nil {
		if r, ok := o.rates.Rate(date); ok {
			return r
		}
	}
	return o.cfg.DefaultRate
}

func (o *Overlay) volatility(raw float64) float64 {
	return math.Max(raw*o.cfg.VolAdjustment, o.cfg.MinVolatility)
}

type openOption struct {
	pos    Position
	exit   time.Time
	reason backtest.ExitReason
	spot   float64 // last valid close
	vol    float64 // last resolvable volatility
}

func (o *Overlay) value(p *openOption, date time.Time) float64 {
	years := p.pos.ExpirationDate.Sub(date).Hours() / 24 / 365
	return BlackScholesCall(p.spot, p.pos.Strike, years, o.rate(date), p.vol)
}

// Run simulates one call per trade. bars must hold the series every
// traded instrument was backtested on.
func (o *Overlay) Run(trades iter.Seq[backtest.Trade], bars map[string]*market.BarSet) (*Result, error) {
	res := &Result{InitialCapital: o.cfg.InitialCapital, FinalValue: o.cfg.InitialCapital}

	byEntry := make(map[time.Time][]backtest.Trade)
	vols := make(map[string][]float64)
	var sets []*market.BarSet
	for t := range trades {
		bs, ok := bars[t.Instrument]
		if !ok || bs == nil {
			return nil, fmt.Errorf("options: no bars for %q", t.Instrument)
		}
		if _, ok := vols[t.Instrument]; !ok {
			vols[t.Instrument] = indicators.RealizedVolatility(bs.ValidCloses(), o.cfg.VolWindow, o.cfg.PeriodsPerYear)
			sets = append(sets, bs)
		}
		d := market.Day(t.EntryDate)
		if bs.Index(d) < 0 {
			res.Skipped++
			o.log.WithFields(logrus.Fields{"trade": t.ID, "date": d.Format("2006-01-02")}).Debug("option skipped: no bar on entry date")
			continue
		}
		byEntry[d] = append(byEntry[d], t)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Instrument < sets[j].Instrument })

	cash := o.cfg.InitialCapital
	var open []*openOption

	settle := func(p *openOption, date time.Time, price float64, reason backtest.ExitReason) {
		pnl := (price - p.pos.EntryOptionPrice) * p.pos.Contracts * o.cfg.ContractMultiplier
		cost := p.pos.EntryOptionPrice * p.pos.Contracts * o.cfg.ContractMultiplier
		cash += price * p.pos.Contracts * o.cfg.ContractMultiplier
		res.Trades = append(res.Trades, Trade{
			Position:        p.pos,
			ExitDate:        date,
			ExitSpot:        p.spot,
			ExitOptionPrice: price,
			PnL:             pnl,
			PnLPercent:      pnl / cost * 100,
			ExitReason:      reason,
		})
	}

	for _, date := range market.Calendar(sets...) {
		// refresh marks, then close what is due
		kept := open[:0]
		for _, p := range open {
			bs := bars[p.pos.Instrument]
			i := bs.Index(date)
			if i < 0 {
				kept = append(kept, p)
				continue
			}
			if b := bs.Bars[i]; b.Valid() {
				p.spot = b.Close
				if v := vols[p.pos.Instrument][i]; !math.IsNaN(v) {
					p.vol = o.volatility(v)
				}
			}
			switch {
			case !date.Before(p.exit) && !p.exit.After(p.pos.ExpirationDate):
				settle(p, date, o.value(p, date), p.reason)
			case !date.Before(p.pos.ExpirationDate):
				settle(p, date, Intrinsic(p.spot, p.pos.Strike), ExitExpired)
			default:
				kept = append(kept, p)
			}
		}
		open = kept

		for _, t := range byEntry[date] {
			if p, ok := o.open(t, date, bars[t.Instrument], vols[t.Instrument], cash); ok {
				cash -= p.pos.EntryOptionPrice * p.pos.Contracts * o.cfg.ContractMultiplier
				open = append(open, p)
			} else {
				res.Skipped++
			}
		}

		openValue := 0.0
		for _, p := range open {
			openValue += o.value(p, date) * p.pos.Contracts * o.cfg.ContractMultiplier
		}
		res.Equity = append(res.Equity, EquityPoint{Date: date, Value: cash + openValue, Cash: cash, OpenValue: openValue})
	}

	// only reachable when bars end before an underlying exit
	for _, p := range open {
		last := res.Equity[len(res.Equity)-1].Date
		settle(p, last, o.value(p, last), p.reason)
	}
	if len(open) > 0 {
		res.Equity[len(res.Equity)-1].Value = cash
		res.Equity[len(res.Equity)-1].Cash = cash
		res.Equity[len(res.Equity)-1].OpenValue = 0
	}

	res.FinalValue = cash
	return res, nil
}

func (o *Overlay) open(t backtest.Trade, date time.Time, bs *market.BarSet, vols []float64, cash float64) (*openOption, bool) {
	fields := logrus.Fields{"trade": t.ID, "instrument": t.Instrument, "date": date.Format("2006-01-02")}
	i := bs.Index(date)
	bar := bs.Bars[i]
	if !bar.Valid() {
		o.log.WithFields(fields).Debug("option skipped: invalid entry bar")
		return nil, false
	}
	if math.IsNaN(vols[i]) {
		o.log.WithFields(fields).Debug("option skipped: volatility unavailable")
		return nil, false
	}
	spot := bar.Close
	strike := math.Round(spot * (1 + o.cfg.StrikePct))
	if strike <= 0 {
		o.log.WithFields(fields).Debug("option skipped: strike rounds to zero")
		return nil, false
	}
	vol := o.volatility(vols[i])
	years := float64(o.cfg.ExpiryDays) / 365
	price := math.Max(BlackScholesCall(spot, strike, years, o.rate(date), vol), o.cfg.MinOptionPrice)

	perContract := price * o.cfg.ContractMultiplier
	contracts := math.Floor(cash * o.cfg.CapitalPct / 100 / perContract)
	if contracts < 1 {
		o.log.WithFields(fields).WithField("price", price).Debug("option skipped: insufficient capital")
		return nil, false
	}
	return &openOption{
		pos: Position{
			TradeID:           t.ID,
			Instrument:        t.Instrument,
			EntryDate:         date,
			ExpirationDate:    date.AddDate(0, 0, o.cfg.ExpiryDays),
			Strike:            strike,
			EntrySpot:         spot,
			ImpliedVolAtEntry: vol,
			Contracts:         contracts,
			EntryOptionPrice:  price,
		},
		exit:   market.Day(t.ExitDate),
		reason: t.ExitReason,
		spot:   spot,
		vol:    vol,
	}, true
}

// Package runner wires a loaded run through the engine, the overlay and
// the summarizer. The CLI and the HTTP API share it.
package runner

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/metrics"
	"github.com/whiterabbit74/stonks-sub003/options"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

type Job struct {
	Strategy strategy.Config
	Sets     []*market.BarSet
	Overlay  *options.Config    // nil disables the overlay
	Rates    options.RateSource // nil falls back to Overlay.DefaultRate
	Log      logrus.FieldLogger
}

type Outcome struct {
	Config         strategy.Config  `json:"config"`
	Result         *backtest.Result `json:"result"`
	Summary        metrics.Summary  `json:"summary"`
	Overlay        *options.Result  `json:"overlay,omitempty"`
	OverlaySummary *metrics.Summary `json:"overlay_summary,omitempty"`
}

// Run executes one backtest and, when configured, its options overlay.
func Run(job Job) (*Outcome, error) {
	log := job.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	eng, err := backtest.NewEngine(job.Strategy, backtest.WithLogger(log))
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(backtest.NewPortfolio(eng.Config().InitialCapital), job.Sets...)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Config: eng.Config(), Result: res, Summary: metrics.Summarize(res)}
	log.WithFields(logrus.Fields{
		"instruments": len(res.Instruments),
		"trades":      len(res.Trades),
		"final":       fmt.Sprintf("%.2f", res.FinalValue),
	}).Info("backtest finished")

	if job.Overlay == nil {
		return out, nil
	}
	opts := []options.Option{options.WithLogger(log)}
	if job.Rates != nil {
		opts = append(opts, options.WithRates(job.Rates))
	}
	ov, err := options.NewOverlay(*job.Overlay, opts...)
	if err != nil {
		return nil, err
	}
	bars := make(map[string]*market.BarSet, len(job.Sets))
	for _, bs := range job.Sets {
		if bs == nil {
			continue
		}
		bars[bs.Instrument] = bs
	}
	ores, err := ov.Run(res.TradeSeq(), bars)
	if err != nil {
		return nil, fmt.Errorf("options overlay: %w", err)
	}
	osum := metrics.SummarizeOverlay(ores)
	out.Overlay = ores
	out.OverlaySummary = &osum
	log.WithFields(logrus.Fields{
		"options": len(ores.Trades),
		"skipped": ores.Skipped,
		"final":   fmt.Sprintf("%.2f", ores.FinalValue),
	}).Info("options overlay finished")
	return out, nil
}

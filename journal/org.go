package journal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var orgFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
	"join": strings.Join,
}

const runOrgTemplate = `* BACKTEST: IBS {{join .Instruments ", "}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:NAME:        {{if .Name}}{{.Name}}{{else}}(unnamed){{end}}
:POLICY:      {{.Policy}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_BAL:   {{printf "%.2f" .InitialCapital}}
:CONTRIB:     {{printf "%.2f" .TotalContributed}}
:END_BAL:     {{printf "%.2f" .FinalValue}}
:NET_PL:      {{printf "%.2f" .NetProfit}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{printf "%.2f" .ProfitFactor}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:CREATED:     [{{.Created.Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src json
{{printf "%s" .Config}}
#+end_src

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
`

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(runOrgTemplate))

// FormatRunOrg renders a run header as an Org-mode entry.
func FormatRunOrg(r RunRecord) (string, error) {
	var buf bytes.Buffer
	if err := runOrg.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatTradeOrg renders one trade as an Org-mode subheading with its
// facts in a PROPERTIES drawer.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", t.Instrument, t.TradeID)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":QUANTITY: %.0f\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY: %s @ %.4f\n", t.EntryDate.Format(dateLayout), t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT: %s @ %.4f\n", t.ExitDate.Format(dateLayout), t.ExitPrice)
	fmt.Fprintf(&b, ":PNL: %.2f\n", t.PnL)
	fmt.Fprintf(&b, ":PNL_PCT: %.2f\n", t.PnLPercent)
	fmt.Fprintf(&b, ":DAYS: %d\n", t.DurationDays)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")
	return b.String()
}

// FormatRunOrgWithTrades renders the run followed by every trade.
func FormatRunOrgWithTrades(run Run) (string, error) {
	head, err := FormatRunOrg(run.Record)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(head)
	if len(run.Trades) > 0 {
		b.WriteString("\n** Trades\n")
	}
	for _, t := range run.Trades {
		b.WriteString("*")
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String(), nil
}

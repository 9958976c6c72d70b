package journal

import (
	"context"
	"fmt"
	"strings"
)

const runColumns = `run_id, created, name, instruments, policy, start_date, end_date, config,
	initial_capital, total_contributed, final_value, net_profit, return_pct,
	max_dd_pct, win_rate, profit_factor, sharpe, trades, wins, losses`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r           RunRecord
		instruments string
		config      string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Name, &instruments, &r.Policy, &r.Start, &r.End, &config,
		&r.InitialCapital, &r.TotalContributed, &r.FinalValue, &r.NetProfit, &r.ReturnPct,
		&r.MaxDDPct, &r.WinRate, &r.ProfitFactor, &r.Sharpe, &r.Trades, &r.Wins, &r.Losses,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if instruments != "" {
		r.Instruments = strings.Split(instruments, ",")
	}
	r.Config = []byte(config)
	return r, nil
}

// GetRun returns the run header. Unknown ids wrap ErrNotFound.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesByRunID returns the run's trades in close order.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, trade_id, instrument, quantity, entry_price, exit_price, entry_date, exit_date,
		       pnl, pnl_pct, duration_days, reason, capital_after_exit
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.RunID, &t.TradeID, &t.Instrument, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.EntryDate, &t.ExitDate,
			&t.PnL, &t.PnLPercent, &t.DurationDays, &t.Reason, &t.CapitalAfterExit,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRunID returns the run's equity curve in date order.
func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquityRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, date, value, free_capital, invested_cost, drawdown_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var e EquityRecord
		if err := rows.Scan(&e.RunID, &e.Date, &e.Value, &e.FreeCapital, &e.InvestedCost, &e.DrawdownPct); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRun returns a run with its trades and equity.
func (j *SQLite) LoadRun(ctx context.Context, runID string) (Run, error) {
	rec, err := j.GetRun(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	equity, err := j.ListEquityByRunID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	return Run{Record: rec, Trades: trades, Equity: equity}, nil
}

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores runs in a single database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordRun writes the run with its trades and equity in one transaction.
func (j *SQLite) RecordRun(ctx context.Context, run Run) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r := run.Record
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, name, instruments, policy, start_date, end_date, config,
		 initial_capital, total_contributed, final_value, net_profit, return_pct,
		 max_dd_pct, win_rate, profit_factor, sharpe, trades, wins, losses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Name, strings.Join(r.Instruments, ","), r.Policy, r.Start, r.End, string(r.Config),
		r.InitialCapital, r.TotalContributed, r.FinalValue, r.NetProfit, r.ReturnPct,
		r.MaxDDPct, r.WinRate, r.ProfitFactor, r.Sharpe, r.Trades, r.Wins, r.Losses,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	tstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(run_id, trade_id, instrument, quantity, entry_price, exit_price, entry_date, exit_date,
		 pnl, pnl_pct, duration_days, reason, capital_after_exit, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tstmt.Close()
	for i, t := range run.Trades {
		if _, err := tstmt.ExecContext(ctx,
			r.RunID, t.TradeID, t.Instrument, t.Quantity, t.EntryPrice, t.ExitPrice, t.EntryDate, t.ExitDate,
			t.PnL, t.PnLPercent, t.DurationDays, t.Reason, t.CapitalAfterExit, i,
		); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
	}

	estmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity
		(run_id, date, value, free_capital, invested_cost, drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer estmt.Close()
	for _, e := range run.Equity {
		if _, err := estmt.ExecContext(ctx, r.RunID, e.Date, e.Value, e.FreeCapital, e.InvestedCost, e.DrawdownPct); err != nil {
			return fmt.Errorf("insert equity %s: %w", e.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// DeleteRun removes a run and everything recorded with it.
func (j *SQLite) DeleteRun(ctx context.Context, runID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

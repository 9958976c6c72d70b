package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	name TEXT NOT NULL,
	instruments TEXT NOT NULL,
	policy TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	config TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	total_contributed REAL NOT NULL,
	final_value REAL NOT NULL,
	net_profit REAL NOT NULL,
	return_pct REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	sharpe REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	trade_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_date DATETIME NOT NULL,
	exit_date DATETIME NOT NULL,
	pnl REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	duration_days INTEGER NOT NULL,
	reason TEXT NOT NULL,
	capital_after_exit REAL NOT NULL,
	seq INTEGER NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	date DATETIME NOT NULL,
	value REAL NOT NULL,
	free_capital REAL NOT NULL,
	invested_cost REAL NOT NULL,
	drawdown_pct REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`

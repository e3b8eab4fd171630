package journal

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	period TEXT NOT NULL,
	threshold REAL NOT NULL,
	split REAL NOT NULL,
	train_rows INTEGER NOT NULL,
	eval_rows INTEGER NOT NULL,
	strategy_return_pct REAL NOT NULL,
	market_return_pct REAL NOT NULL,
	invested_days INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_days (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	strategy REAL NOT NULL,
	market REAL NOT NULL,
	position INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES backtest_runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_backtest_days_run ON backtest_days(run_id, date);
`

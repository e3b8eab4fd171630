package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/marketsync/marketsync/backtest"
)

// SQLite is a Journal backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordRun stores the run summary and its per-day records in one
// transaction.
func (j *SQLite) RecordRun(run Run, days []backtest.Record) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO backtest_runs
		(run_id, created, period, threshold, split, train_rows, eval_rows,
		 strategy_return_pct, market_return_pct, invested_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.Period, run.Threshold, run.Split,
		run.TrainRows, run.EvalRows,
		run.StrategyReturnPct, run.MarketReturnPct, run.InvestedDays,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO backtest_days (run_id, date, strategy, market, position)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(run.RunID, d.Date, d.Strategy, d.Market, d.Position); err != nil {
			return fmt.Errorf("insert day %s: %w", d.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// GetRun loads one run summary by ID.
func (j *SQLite) GetRun(runID string) (Run, error) {
	row := j.db.QueryRow(`
		SELECT run_id, created, period, threshold, split, train_rows, eval_rows,
		       strategy_return_pct, market_return_pct, invested_days
		FROM backtest_runs WHERE run_id = ?`, runID)

	var r Run
	err := row.Scan(&r.RunID, &r.Created, &r.Period, &r.Threshold, &r.Split,
		&r.TrainRows, &r.EvalRows,
		&r.StrategyReturnPct, &r.MarketReturnPct, &r.InvestedDays)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns all run summaries, newest first.
func (j *SQLite) ListRuns() ([]Run, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, period, threshold, split, train_rows, eval_rows,
		       strategy_return_pct, market_return_pct, invested_days
		FROM backtest_runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Created, &r.Period, &r.Threshold, &r.Split,
			&r.TrainRows, &r.EvalRows,
			&r.StrategyReturnPct, &r.MarketReturnPct, &r.InvestedDays); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDays returns the per-day records of a run in date order.
func (j *SQLite) ListDays(runID string) ([]backtest.Record, error) {
	rows, err := j.db.Query(`
		SELECT date, strategy, market, position
		FROM backtest_days WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.Record
	for rows.Next() {
		var r backtest.Record
		if err := rows.Scan(&r.Date, &r.Strategy, &r.Market, &r.Position); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (j *SQLite) Close() error {
	return j.db.Close()
}

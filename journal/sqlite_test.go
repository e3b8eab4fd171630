package journal

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsync/marketsync/backtest"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func testRun() (Run, []backtest.Record) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	run := Run{
		RunID:             NewRunID(),
		Created:           created,
		Period:            "5y",
		Threshold:         0.5,
		Split:             0.8,
		TrainRows:         800,
		EvalRows:          200,
		StrategyReturnPct: 12.5,
		MarketReturnPct:   8.25,
		InvestedDays:      130,
	}
	days := []backtest.Record{
		{Date: created.AddDate(0, 0, 1), Strategy: 1.01, Market: 1.01, Position: 1},
		{Date: created.AddDate(0, 0, 2), Strategy: 1.01, Market: 0.99, Position: 0},
	}
	return run, days
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('backtest_runs','backtest_days')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["backtest_runs"])
	assert.True(t, found["backtest_days"])
}

func TestRecordAndGetRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	run, days := testRun()

	require.NoError(t, j.RecordRun(run, days))

	got, err := j.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Period, got.Period)
	assert.Equal(t, run.Threshold, got.Threshold)
	assert.Equal(t, run.StrategyReturnPct, got.StrategyReturnPct)
	assert.Equal(t, run.InvestedDays, got.InvestedDays)
	assert.True(t, got.Created.Equal(run.Created))
}

func TestListDaysOrdered(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	run, days := testRun()
	require.NoError(t, j.RecordRun(run, days))

	got, err := j.ListDays(run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, 0, got[1].Position)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	first, days := testRun()
	require.NoError(t, j.RecordRun(first, days))

	second, days2 := testRun()
	require.NoError(t, j.RecordRun(second, days2))

	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
}

func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	_, err := j.GetRun("does-not-exist")
	assert.Error(t, err)
}

func TestNewRunIDSortable(t *testing.T) {
	t.Parallel()

	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "same-millisecond IDs still increase")
}

func TestNewRunIDUniqueUnderConcurrency(t *testing.T) {
	t.Parallel()

	const n = 64
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewRunID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

// Package journal persists backtest runs to SQLite so results can be
// compared across periods and thresholds later. Trained models are never
// persisted; only run parameters and the simulated curves are.
package journal

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/marketsync/marketsync/backtest"
)

// Run summarizes one backtest invocation.
type Run struct {
	RunID     string
	Created   time.Time
	Period    string
	Threshold float64
	Split     float64

	TrainRows int
	EvalRows  int

	StrategyReturnPct float64
	MarketReturnPct   float64
	InvestedDays      int
}

// Journal records and retrieves backtest runs.
type Journal interface {
	RecordRun(run Run, days []backtest.Record) error
	GetRun(runID string) (Run, error)
	ListRuns() ([]Run, error)
	ListDays(runID string) ([]backtest.Record, error)
	Close() error
}

// NewRunID returns a lexicographically sortable run identifier. The
// shared monotonic entropy source keeps IDs unique and ordered even for
// concurrent requests within the same millisecond.
func NewRunID() string {
	return ulid.Make().String()
}

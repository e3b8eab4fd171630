package pipeline

import (
	"errors"

	"github.com/marketsync/marketsync/backtest"
	"github.com/marketsync/marketsync/features"
	"github.com/marketsync/marketsync/forest"
	"github.com/marketsync/marketsync/market"
)

// The pipeline failure taxonomy. Callers match with errors.Is and convert
// to a single user-facing message at the top level; no stage renders a
// partial result.
var (
	// ErrDataUnavailable means the upstream fetch produced no usable rows.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientHistory means the fetch succeeded but no feature row
	// survived the rolling-window warm-up.
	ErrInsufficientHistory = features.ErrInsufficientHistory

	// ErrSingleClass means the training labels were degenerate (every day
	// moved the same way).
	ErrSingleClass = forest.ErrSingleClass

	// ErrAlignment is the simulator's internal invariant violation.
	ErrAlignment = backtest.ErrAlignment

	// ErrLagOutOfRange means the requested display lag exceeds the
	// fetched history; a caller parameter problem, not a data one.
	ErrLagOutOfRange = market.ErrLagOutOfRange
)

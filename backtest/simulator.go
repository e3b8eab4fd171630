// Package backtest walks an evaluation window day by day, converting
// model probabilities into a long/flat position and compounding realized
// returns into parallel strategy and buy-and-hold curves.
package backtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlignment reports a probability/return length mismatch surviving
// truncation. It is an internal assertion: Simulate truncates both inputs
// to the shorter before walking, so seeing this error means a defect.
var ErrAlignment = errors.New("position and return sequences misaligned")

// Record is one simulated day.
type Record struct {
	Date     time.Time `json:"date"`
	Strategy float64   `json:"strategy_asset"`
	Market   float64   `json:"market_asset"`
	Position int       `json:"position"`
}

// Result is a full simulation: per-day records plus final cumulative
// returns in percent.
type Result struct {
	Records           []Record `json:"records"`
	StrategyReturnPct float64  `json:"strategy_return_pct"`
	MarketReturnPct   float64  `json:"market_return_pct"`
	InvestedDays      int      `json:"invested_days"`
}

// Simulate runs the long/flat rule over the evaluation window.
//
// probs[i] is the model's next-day-up probability observed at the close of
// dates[i]; returns[i] is the realized domestic return from dates[i] to
// the next trading day. The three slices are truncated to the shortest,
// anchored at the start, before the walk (the final day of a series has no
// realized next-day return and falls off here). Position for a day is 1
// when probs[i] >= threshold; only invested days compound into the
// strategy curve, every day compounds into the market curve.
func Simulate(dates []time.Time, probs []float64, returns []float64, threshold float64) (*Result, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in (0,1), got %g", threshold)
	}

	n := len(dates)
	if len(probs) < n {
		n = len(probs)
	}
	if len(returns) < n {
		n = len(returns)
	}
	dates, probs, returns = dates[:n], probs[:n], returns[:n]
	if len(probs) != len(returns) || len(dates) != len(returns) {
		return nil, fmt.Errorf("%w: %d dates, %d probs, %d returns", ErrAlignment, len(dates), len(probs), len(returns))
	}
	if n == 0 {
		return nil, fmt.Errorf("no days to simulate")
	}

	res := &Result{Records: make([]Record, 0, n)}
	strategy, mkt := 1.0, 1.0
	for i := 0; i < n; i++ {
		position := 0
		if probs[i] >= threshold {
			position = 1
			strategy *= 1 + returns[i]
			res.InvestedDays++
		}
		mkt *= 1 + returns[i]
		res.Records = append(res.Records, Record{
			Date:     dates[i],
			Strategy: strategy,
			Market:   mkt,
			Position: position,
		})
	}

	res.StrategyReturnPct = (strategy - 1) * 100
	res.MarketReturnPct = (mkt - 1) * 100
	return res, nil
}

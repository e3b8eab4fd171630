// Package features derives the per-day predictor matrix and next-day
// direction labels from a price table.
//
// Every feature column is computed over the full table with NaN marking
// warm-up rows; the final row set is the intersection of valid indices
// across all features and the label, so features with different warm-up
// lengths can never silently misalign.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/marketsync/marketsync/market"
)

// ErrInsufficientHistory is returned when no row survives warm-up and
// labeling, i.e. the requested period is shorter than the longest window.
var ErrInsufficientHistory = errors.New("insufficient history for feature windows")

// Feature column names.
const (
	TopixReturn  = "topix_return"
	SP500Return  = "sp500_return"
	SP500Trend   = "sp500_trend"
	Volatility   = "volatility"
	RSI14        = "rsi14"
	DayOfWeek    = "day_of_week"
	MonthEnd     = "month_end"
	USDJPYReturn = "usdjpy_return"
)

// Params fixes the rolling-window sizes. The defaults mirror the dashboard
// constants; they are configuration, not tuning knobs.
type Params struct {
	TrendWindow int // foreign-index moving-average window
	VolWindow   int // domestic return stddev window
	RSIWindow   int // oscillator window
	LagDays     int // number of lagged domestic returns
}

// DefaultParams returns the standard window sizes.
func DefaultParams() Params {
	return Params{
		TrendWindow: 5,
		VolWindow:   5,
		RSIWindow:   14,
		LagDays:     3,
	}
}

// Descriptor names one feature and computes its full-length column.
type Descriptor struct {
	Name    string
	compute func(t *market.Table) []float64
}

// Builder constructs feature sets with fixed window parameters.
type Builder struct {
	params Params
}

// NewBuilder creates a Builder. Zero-valued params are replaced with the
// defaults.
func NewBuilder(p Params) *Builder {
	d := DefaultParams()
	if p.TrendWindow <= 0 {
		p.TrendWindow = d.TrendWindow
	}
	if p.VolWindow <= 0 {
		p.VolWindow = d.VolWindow
	}
	if p.RSIWindow <= 0 {
		p.RSIWindow = d.RSIWindow
	}
	if p.LagDays <= 0 {
		p.LagDays = d.LagDays
	}
	return &Builder{params: p}
}

// Set is the training/evaluation universe: one row per date where every
// feature window is fully warmed and the next-day label is defined.
type Set struct {
	Dates []time.Time
	Names []string
	X     [][]float64
	Y     []int
	// NextReturn holds the realized domestic return from each row's date to
	// the following trading day, aligned with X and Y.
	NextReturn []float64
}

// Descriptors enumerates the feature set for the given table. The list is
// dynamic only in its tail: the currency feature appears when the table
// carries the currency column.
func (b *Builder) Descriptors(t *market.Table) []Descriptor {
	p := b.params
	ds := []Descriptor{
		{TopixReturn, func(t *market.Table) []float64 {
			return topixReturns(t)
		}},
		{SP500Return, func(t *market.Table) []float64 {
			v, _ := t.Column(market.SP500)
			return market.Returns(v)
		}},
		{SP500Trend, func(t *market.Table) []float64 {
			v, _ := t.Column(market.SP500)
			ma := rollingMean(v, p.TrendWindow)
			out := nanSlice(len(v))
			for i := range v {
				if !math.IsNaN(ma[i]) {
					out[i] = v[i]/ma[i] - 1
				}
			}
			return out
		}},
		{Volatility, func(t *market.Table) []float64 {
			return rollingStd(topixReturns(t), p.VolWindow)
		}},
		{RSI14, func(t *market.Table) []float64 {
			v, _ := t.Column(market.Topix)
			return rsi(v, p.RSIWindow)
		}},
		{DayOfWeek, func(t *market.Table) []float64 {
			out := make([]float64, t.Len())
			for i, d := range t.Dates {
				out[i] = float64(d.Weekday())
			}
			return out
		}},
		{MonthEnd, func(t *market.Table) []float64 {
			out := make([]float64, t.Len())
			for i, d := range t.Dates {
				if d.AddDate(0, 0, 1).Month() != d.Month() {
					out[i] = 1
				}
			}
			return out
		}},
	}

	for lag := 1; lag <= p.LagDays; lag++ {
		lag := lag
		ds = append(ds, Descriptor{
			Name: fmt.Sprintf("%s_lag%d", TopixReturn, lag),
			compute: func(t *market.Table) []float64 {
				return shift(topixReturns(t), lag)
			},
		})
	}

	if t.HasColumn(market.USDJPY) {
		ds = append(ds, Descriptor{USDJPYReturn, func(t *market.Table) []float64 {
			v, _ := t.Column(market.USDJPY)
			return market.Returns(v)
		}})
	}
	return ds
}

// Build derives the feature matrix, labels, and aligned next-day returns
// from the price table.
func (b *Builder) Build(t *market.Table) (*Set, error) {
	for _, required := range []string{market.SP500, market.Topix} {
		if !t.HasColumn(required) {
			return nil, fmt.Errorf("price table missing required column %q", required)
		}
	}

	descriptors := b.Descriptors(t)
	n := t.Len()

	columns := make([][]float64, len(descriptors))
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
		columns[i] = d.compute(t)
	}

	topix, _ := t.Column(market.Topix)
	nextReturn := nanSlice(n)
	labels := make([]int, n)
	labeled := make([]bool, n)
	for i := 0; i < n-1; i++ {
		nextReturn[i] = (topix[i+1] - topix[i]) / topix[i]
		if topix[i+1] > topix[i] {
			labels[i] = 1
		}
		labeled[i] = true
	}

	set := &Set{Names: names}
	for row := 0; row < n; row++ {
		if !labeled[row] {
			continue
		}
		valid := true
		for _, col := range columns {
			if math.IsNaN(col[row]) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		x := make([]float64, len(columns))
		for i, col := range columns {
			x[i] = col[row]
		}
		set.Dates = append(set.Dates, t.Dates[row])
		set.X = append(set.X, x)
		set.Y = append(set.Y, labels[row])
		set.NextReturn = append(set.NextReturn, nextReturn[row])
	}

	if len(set.X) == 0 {
		return nil, fmt.Errorf("%w: %d price rows, longest window %d", ErrInsufficientHistory, n, b.longestWindow())
	}
	return set, nil
}

// Len returns the number of rows in the set.
func (s *Set) Len() int { return len(s.X) }

func (b *Builder) longestWindow() int {
	longest := b.params.TrendWindow
	if b.params.VolWindow+1 > longest {
		longest = b.params.VolWindow + 1
	}
	if b.params.RSIWindow+1 > longest {
		longest = b.params.RSIWindow + 1
	}
	if b.params.LagDays+1 > longest {
		longest = b.params.LagDays + 1
	}
	return longest
}

func topixReturns(t *market.Table) []float64 {
	v, _ := t.Column(market.Topix)
	return market.Returns(v)
}

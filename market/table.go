// Package market defines the daily price table the pipeline consumes and
// the transformations the dashboard needs (gap fill, normalization, lag
// shifting).
package market

import (
	"fmt"
	"math"
	"time"
)

// Canonical column names for the three instruments.
const (
	SP500  = "sp500"
	Topix  = "topix"
	USDJPY = "usdjpy"
)

// Series is a single named price column.
type Series struct {
	Name   string
	Values []float64
}

// Table is a date-indexed rectangle of closing prices. Dates are strictly
// increasing with no duplicates; every series has len(Dates) values. Gaps
// are represented as NaN until FillGaps is applied.
type Table struct {
	Dates  []time.Time
	Series []Series
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Dates)
}

// Column returns the values for the named series.
func (t *Table) Column(name string) ([]float64, bool) {
	for _, s := range t.Series {
		if s.Name == name {
			return s.Values, true
		}
	}
	return nil, false
}

// HasColumn reports whether the named series is present.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Validate checks the table invariants: at least one series, equal column
// lengths, and strictly increasing dates.
func (t *Table) Validate() error {
	if len(t.Series) == 0 {
		return fmt.Errorf("table has no series")
	}
	for _, s := range t.Series {
		if len(s.Values) != len(t.Dates) {
			return fmt.Errorf("series %q has %d values for %d dates", s.Name, len(s.Values), len(t.Dates))
		}
	}
	for i := 1; i < len(t.Dates); i++ {
		if !t.Dates[i].After(t.Dates[i-1]) {
			return fmt.Errorf("dates not strictly increasing at row %d (%s then %s)",
				i, t.Dates[i-1].Format("2006-01-02"), t.Dates[i].Format("2006-01-02"))
		}
	}
	return nil
}

// FillGaps returns a copy with gaps filled forward then backward. Rows
// where any series is still NaN afterwards (a fully empty column) are
// dropped.
func (t *Table) FillGaps() *Table {
	filled := make([]Series, len(t.Series))
	for i, s := range t.Series {
		v := append([]float64(nil), s.Values...)
		for j := 1; j < len(v); j++ {
			if math.IsNaN(v[j]) {
				v[j] = v[j-1]
			}
		}
		for j := len(v) - 2; j >= 0; j-- {
			if math.IsNaN(v[j]) {
				v[j] = v[j+1]
			}
		}
		filled[i] = Series{Name: s.Name, Values: v}
	}

	keep := make([]bool, len(t.Dates))
	kept := 0
	for row := range t.Dates {
		keep[row] = true
		for _, s := range filled {
			if math.IsNaN(s.Values[row]) {
				keep[row] = false
				break
			}
		}
		if keep[row] {
			kept++
		}
	}

	out := &Table{Dates: make([]time.Time, 0, kept)}
	for _, s := range filled {
		out.Series = append(out.Series, Series{Name: s.Name, Values: make([]float64, 0, kept)})
	}
	for row := range t.Dates {
		if !keep[row] {
			continue
		}
		out.Dates = append(out.Dates, t.Dates[row])
		for i := range filled {
			out.Series[i].Values = append(out.Series[i].Values, filled[i].Values[row])
		}
	}
	return out
}

// Normalize returns a copy with every series divided by its first value,
// so all curves start at 1.0. The table must be non-empty and gap free.
func (t *Table) Normalize() *Table {
	out := &Table{Dates: append([]time.Time(nil), t.Dates...)}
	for _, s := range t.Series {
		v := make([]float64, len(s.Values))
		first := s.Values[0]
		for i, x := range s.Values {
			v[i] = x / first
		}
		out.Series = append(out.Series, Series{Name: s.Name, Values: v})
	}
	return out
}

// Returns computes day-over-day percentage changes, aligned to the input:
// index 0 is NaN, index i holds (v[i]-v[i-1])/v[i-1].
func Returns(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(values); i++ {
		out[i] = (values[i] - values[i-1]) / values[i-1]
	}
	return out
}

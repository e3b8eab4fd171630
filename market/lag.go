package market

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrLagOutOfRange reports a lag that cannot be applied to the table,
// either negative or too large for the available history.
var ErrLagOutOfRange = errors.New("lag days out of range")

// Overseas sessions close before Tokyo opens, so the foreign index and the
// currency pair can be viewed shifted forward against the domestic index.
// shiftable lists the series LagShift moves; the domestic index stays put.
var shiftable = map[string]bool{
	SP500:  true,
	USDJPY: true,
}

// LagShift returns a copy where the foreign and currency series are shifted
// forward by days rows (row i takes the value from row i-days). The first
// days rows, which would need unseen history, are dropped, and the result
// is normalized so every series starts at 100.
func (t *Table) LagShift(days int) (*Table, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: must be non-negative, got %d", ErrLagOutOfRange, days)
	}
	if days >= t.Len() {
		return nil, fmt.Errorf("%w: lag of %d days leaves no rows (table has %d)", ErrLagOutOfRange, days, t.Len())
	}

	n := t.Len() - days
	out := &Table{Dates: append([]time.Time(nil), t.Dates[days:]...)}
	for _, s := range t.Series {
		v := make([]float64, n)
		if shiftable[s.Name] {
			copy(v, s.Values[:n])
		} else {
			copy(v, s.Values[days:])
		}
		out.Series = append(out.Series, Series{Name: s.Name, Values: v})
	}

	norm := out.Normalize()
	for i := range norm.Series {
		for j := range norm.Series[i].Values {
			norm.Series[i].Values[j] *= 100
		}
	}
	return norm, nil
}

// LeadLagCorrelation measures how well foreign daily returns lead domestic
// daily returns by the given number of days, as a Pearson correlation.
func (t *Table) LeadLagCorrelation(days int) (float64, error) {
	foreign, ok := t.Column(SP500)
	if !ok {
		return 0, fmt.Errorf("missing %q series", SP500)
	}
	domestic, ok := t.Column(Topix)
	if !ok {
		return 0, fmt.Errorf("missing %q series", Topix)
	}
	if days < 0 {
		return 0, fmt.Errorf("%w: must be non-negative, got %d", ErrLagOutOfRange, days)
	}

	fr := Returns(foreign)
	dr := Returns(domestic)

	// Pair foreign return at day i-days with domestic return at day i.
	// Index 0 of each return series is NaN and is skipped.
	var x, y []float64
	for i := days + 1; i < len(dr); i++ {
		x = append(x, fr[i-days])
		y = append(y, dr[i])
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("%w: not enough overlapping returns for lag %d", ErrLagOutOfRange, days)
	}
	return stat.Correlation(x, y, nil), nil
}

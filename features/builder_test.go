package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsync/marketsync/market"
)

// weekdays returns n consecutive weekday dates starting 2024-01-01 (a
// Monday).
func weekdays(n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func priceTable(n int, withCurrency bool) *market.Table {
	dates := weekdays(n)
	sp := make([]float64, n)
	tp := make([]float64, n)
	fx := make([]float64, n)
	sp[0], tp[0], fx[0] = 4000, 2000, 150
	for i := 1; i < n; i++ {
		// Deterministic zig-zag so both label classes appear.
		move := 0.01
		if i%3 == 0 {
			move = -0.012
		}
		sp[i] = sp[i-1] * (1 + move/2)
		tp[i] = tp[i-1] * (1 + move)
		fx[i] = fx[i-1] * (1 - move/4)
	}

	tab := &market.Table{
		Dates: dates,
		Series: []market.Series{
			{Name: market.SP500, Values: sp},
			{Name: market.Topix, Values: tp},
		},
	}
	if withCurrency {
		tab.Series = append(tab.Series, market.Series{Name: market.USDJPY, Values: fx})
	}
	return tab
}

func TestBuildWarmupAndLabelWindow(t *testing.T) {
	t.Parallel()

	n := 30
	tab := priceTable(n, true)
	set, err := NewBuilder(Params{}).Build(tab)
	require.NoError(t, err)

	// With the default windows the longest warm-up is the 14-day
	// oscillator (first valid at index 14) and the last date has no label,
	// so exactly rows 14..n-2 survive.
	require.Equal(t, n-15, set.Len())
	assert.Equal(t, tab.Dates[14], set.Dates[0])
	assert.Equal(t, tab.Dates[n-2], set.Dates[set.Len()-1])
}

func TestBuildLabelsAndReturnsAligned(t *testing.T) {
	t.Parallel()

	tab := priceTable(30, false)
	set, err := NewBuilder(Params{}).Build(tab)
	require.NoError(t, err)

	topix, _ := tab.Column(market.Topix)
	dateIndex := map[time.Time]int{}
	for i, d := range tab.Dates {
		dateIndex[d] = i
	}

	for i, d := range set.Dates {
		row := dateIndex[d]
		wantLabel := 0
		if topix[row+1] > topix[row] {
			wantLabel = 1
		}
		assert.Equal(t, wantLabel, set.Y[i], "label at %s", d.Format("2006-01-02"))
		assert.InDelta(t, (topix[row+1]-topix[row])/topix[row], set.NextReturn[i], 1e-12)
	}
}

func TestDefaultFeatureSetIncludesLags(t *testing.T) {
	t.Parallel()

	set, err := NewBuilder(Params{}).Build(priceTable(30, false))
	require.NoError(t, err)
	for _, name := range []string{"topix_return_lag1", "topix_return_lag2", "topix_return_lag3"} {
		assert.Contains(t, set.Names, name)
	}
}

func TestBuildFeatureSetIsDynamic(t *testing.T) {
	t.Parallel()

	with, err := NewBuilder(Params{}).Build(priceTable(30, true))
	require.NoError(t, err)
	assert.Contains(t, with.Names, USDJPYReturn)

	without, err := NewBuilder(Params{}).Build(priceTable(30, false))
	require.NoError(t, err)
	assert.NotContains(t, without.Names, USDJPYReturn)
	assert.Equal(t, len(with.Names)-1, len(without.Names))
}

func TestBuildMissingRequiredColumn(t *testing.T) {
	t.Parallel()

	tab := priceTable(30, false)
	tab.Series = tab.Series[:1] // drop topix
	_, err := NewBuilder(Params{}).Build(tab)
	assert.Error(t, err)
}

func TestBuildInsufficientHistory(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(Params{}).Build(priceTable(10, true))
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestRSISaturatesWithoutLosses(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	values := rsi(closes, 14)
	assert.True(t, math.IsNaN(values[13]))
	assert.Equal(t, 100.0, values[14])
	assert.Equal(t, 100.0, values[19])
}

func TestRSIBounded(t *testing.T) {
	t.Parallel()

	tab := priceTable(40, false)
	topix, _ := tab.Column(market.Topix)
	values := rsi(topix, 14)
	for i := 14; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], 0.0)
		assert.LessOrEqual(t, values[i], 100.0)
	}
}

func TestRollingStdMatchesGonum(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 4, 8, 16, 32}
	out := rollingStd(values, 3)
	assert.True(t, math.IsNaN(out[1]))
	// Window {2,4,8}: sample stddev.
	assert.InDelta(t, 3.05505, out[3], 1e-4)
}

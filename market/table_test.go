package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func testTable() *Table {
	return &Table{
		Dates: []time.Time{day(0), day(1), day(2), day(3)},
		Series: []Series{
			{Name: SP500, Values: []float64{100, 110, 120, 130}},
			{Name: Topix, Values: []float64{200, 210, 190, 220}},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, testTable().Validate())

	bad := testTable()
	bad.Dates[1] = bad.Dates[0]
	assert.Error(t, bad.Validate())

	short := testTable()
	short.Series[0].Values = short.Series[0].Values[:2]
	assert.Error(t, short.Validate())

	assert.Error(t, (&Table{}).Validate())
}

func TestFillGapsForwardThenBackward(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	tab := &Table{
		Dates: []time.Time{day(0), day(1), day(2), day(3)},
		Series: []Series{
			{Name: SP500, Values: []float64{nan, 10, nan, 12}},
			{Name: Topix, Values: []float64{5, nan, nan, 8}},
		},
	}

	filled := tab.FillGaps()
	require.Equal(t, 4, filled.Len())

	sp, _ := filled.Column(SP500)
	assert.Equal(t, []float64{10, 10, 10, 12}, sp) // leading gap backfilled, middle forward filled

	tp, _ := filled.Column(Topix)
	assert.Equal(t, []float64{5, 5, 5, 8}, tp)
}

func TestFillGapsDropsAllNaNColumnRows(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	tab := &Table{
		Dates: []time.Time{day(0), day(1)},
		Series: []Series{
			{Name: SP500, Values: []float64{1, 2}},
			{Name: Topix, Values: []float64{nan, nan}},
		},
	}
	assert.Equal(t, 0, tab.FillGaps().Len())
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	norm := testTable().Normalize()
	sp, _ := norm.Column(SP500)
	assert.Equal(t, 1.0, sp[0])
	assert.InDelta(t, 1.3, sp[3], 1e-12)
}

func TestReturns(t *testing.T) {
	t.Parallel()

	r := Returns([]float64{100, 110, 99})
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, 0.10, r[1], 1e-12)
	assert.InDelta(t, -0.10, r[2], 1e-12)
}

func TestLagShift(t *testing.T) {
	t.Parallel()

	shifted, err := testTable().LagShift(1)
	require.NoError(t, err)
	require.Equal(t, 3, shifted.Len())
	assert.Equal(t, day(1), shifted.Dates[0])

	// Foreign series is shifted: row 0 carries the prior day's value,
	// normalized to 100 at the first kept row.
	sp, _ := shifted.Column(SP500)
	assert.InDelta(t, 100, sp[0], 1e-9)
	assert.InDelta(t, 110.0/100.0*100, sp[1], 1e-9)

	// Domestic series is not shifted.
	tp, _ := shifted.Column(Topix)
	assert.InDelta(t, 100, tp[0], 1e-9)
	assert.InDelta(t, 190.0/210.0*100, tp[1], 1e-9)
}

func TestLagShiftErrors(t *testing.T) {
	t.Parallel()

	_, err := testTable().LagShift(-1)
	assert.ErrorIs(t, err, ErrLagOutOfRange)

	_, err = testTable().LagShift(4)
	assert.ErrorIs(t, err, ErrLagOutOfRange)
}

func TestLeadLagCorrelationPerfectLead(t *testing.T) {
	t.Parallel()

	// Domestic returns repeat foreign returns one day later, so the
	// one-day lead correlation is exactly 1.
	n := 12
	dates := make([]time.Time, n)
	sp := make([]float64, n)
	tp := make([]float64, n)
	sp[0], tp[0] = 100, 100
	moves := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01, 0.005, 0.01, -0.015, 0.01, -0.005}
	for i := 0; i < n; i++ {
		dates[i] = day(i)
		if i > 0 {
			sp[i] = sp[i-1] * (1 + moves[i-1])
		}
	}
	tp[1] = tp[0] // day 1 has no lagged foreign return; it is outside the pairing
	for i := 2; i < n; i++ {
		tp[i] = tp[i-1] * (1 + moves[i-2])
	}

	tab := &Table{
		Dates: dates,
		Series: []Series{
			{Name: SP500, Values: sp},
			{Name: Topix, Values: tp},
		},
	}

	corr, err := tab.LeadLagCorrelation(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr, 1e-9)
}

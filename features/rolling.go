package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// rollingMean computes the trailing window mean aligned to the input.
// Positions without a full window, or whose window contains NaN, are NaN.
func rollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = stat.Mean(w, nil)
	}
	return out
}

// rollingStd computes the trailing window sample standard deviation,
// aligned like rollingMean.
func rollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}

// rsi computes the bounded 0-100 oscillator from closing prices: the ratio
// of average gain to average loss over the trailing window of price
// changes. A window with no losses saturates at 100.
func rsi(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	for i := window; i < len(closes); i++ {
		gain, loss := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		if loss == 0 {
			out[i] = 100
			continue
		}
		rs := gain / loss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// shift moves values forward by lag rows; the first lag rows become NaN.
func shift(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		out[i] = values[i-lag]
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

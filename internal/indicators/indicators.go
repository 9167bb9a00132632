// Package indicators provides stateless transforms over ordered daily
// price/volume series.
//
// Every function returns a slice aligned one-to-one with its input.
// Entries that have not warmed up yet are NaN, never zero; callers must
// check with math.IsNaN (or the Defined helper) before using a value.
// Undefined upstream values propagate as NaN rather than raising.
package indicators

import (
	"math"

	"swing-scanner/internal/models"
)

// EMA calculates an exponential moving average with smoothing factor
// 2/(period+1). The recursion runs from the first defined observation
// with no seeding bias; output stays undefined until period
// observations have accumulated.
func EMA(values []float64, period int) []float64 {
	return ewm(values, 2.0/float64(period+1), period)
}

// SMA calculates a simple moving average over a trailing window of
// exactly period values; undefined before that.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = mean(window)
	}
	return out
}

// TrueRange calculates the raw per-bar true range: the max of
// (high-low, |high-prevClose|, |low-prevClose|). The first bar has no
// previous close and is undefined.
func TrueRange(bars []models.PriceBar) []float64 {
	out := nanSlice(len(bars))
	for i := 1; i < len(bars); i++ {
		out[i] = trueRange(bars[i], bars[i-1])
	}
	return out
}

// ATR calculates the Wilder-smoothed average true range: exponential
// smoothing of the true range with factor 1/period. Because the first
// true range is itself undefined, the output is undefined for the
// first period bars.
func ATR(bars []models.PriceBar, period int) []float64 {
	return ewm(TrueRange(bars), 1.0/float64(period), period)
}

// CCI calculates the Commodity Channel Index:
//
//	(TP - SMA(TP, period)) / (constant * mean abs deviation of TP)
//
// A zero mean deviation makes the value undefined ("no signal"), never
// a division-by-zero panic.
func CCI(bars []models.PriceBar, period int, constant float64) []float64 {
	out := nanSlice(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	tp := make([]float64, len(bars))
	for i, b := range bars {
		tp[i] = (b.High + b.Low + b.AdjClose) / 3.0
	}
	for i := period - 1; i < len(bars); i++ {
		window := tp[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		m := mean(window)
		var dev float64
		for _, v := range window {
			dev += math.Abs(v - m)
		}
		dev /= float64(period)
		denom := constant * dev
		if denom == 0 {
			continue
		}
		out[i] = (tp[i] - m) / denom
	}
	return out
}

// ewm applies recursive exponential smoothing with the given factor,
// skipping leading undefined values. Embedded NaNs yield an undefined
// output without resetting the smoother. The output stays undefined
// until minPeriods observations have been consumed.
func ewm(values []float64, alpha float64, minPeriods int) []float64 {
	out := nanSlice(len(values))
	if alpha <= 0 || alpha > 1 {
		return out
	}
	var state float64
	started := false
	count := 0
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !started {
			state = v
			started = true
		} else {
			state = alpha*v + (1-alpha)*state
		}
		count++
		if count >= minPeriods {
			out[i] = state
		}
	}
	return out
}

// Defined reports whether a value has warmed up.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Last returns the final value of a series, or NaN for an empty one.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

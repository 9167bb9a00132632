package indicators

import (
	"math"

	"swing-scanner/internal/models"
)

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

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// trueRange calculates the true range for a bar given its predecessor.
func trueRange(current, previous models.PriceBar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.AdjClose)
	lowClose := math.Abs(current.Low - previous.AdjClose)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// AdjCloses extracts adjusted close prices from bars.
func AdjCloses(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose
	}
	return out
}

// Highs extracts high prices from bars.
func Highs(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices from bars.
func Lows(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts volumes from bars.
func Volumes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// Mean is the arithmetic mean of values; NaN for an empty slice.
func Mean(values []float64) float64 {
	return mean(values)
}

// TailMean is the arithmetic mean of the last n values.
func TailMean(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return math.NaN()
	}
	return mean(values[len(values)-n:])
}

// ReturnOver is the fractional return over the trailing n observations:
// last/values[len-1-n] - 1. Undefined when the series is too short or
// the base value is not positive.
func ReturnOver(values []float64, n int) float64 {
	if n <= 0 || len(values) <= n {
		return math.NaN()
	}
	base := values[len(values)-1-n]
	if base <= 0 || math.IsNaN(base) {
		return math.NaN()
	}
	return values[len(values)-1]/base - 1
}

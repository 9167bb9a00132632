package breakout

import (
	"math"

	"swing-scanner/internal/models"
	"swing-scanner/internal/stats"
)

// highestCleared finds the highest-level resistance zone whose upper
// bound the close has cleared by a fraction inside [minAbove, maxAbove].
func highestCleared(resistance []models.Zone, close, minAbove, maxAbove float64) (models.Zone, bool) {
	for i := len(resistance) - 1; i >= 0; i-- {
		z := resistance[i]
		if z.Upper <= 0 || close <= z.Upper {
			continue
		}
		above := (close - z.Upper) / z.Upper
		if above >= minAbove && above <= maxAbove {
			return z, true
		}
		// Cleared by too much; a lower band is an old level, not a
		// fresh breakout.
		return models.Zone{}, false
	}
	return models.Zone{}, false
}

// nearestResistance returns the lowest-level resistance zone, i.e. the
// first band price will contest. Zones ascend by level.
func nearestResistance(resistance []models.Zone, close float64) (models.Zone, bool) {
	if len(resistance) == 0 {
		return models.Zone{}, false
	}
	return resistance[0], true
}

// priorMean averages the window of n values that precedes the last skip
// values. NaN when the series is too short or contains undefined gaps.
func priorMean(values []float64, skip, n int) float64 {
	if len(values) < skip+n {
		return math.NaN()
	}
	window := values[len(values)-skip-n : len(values)-skip]
	var sum float64
	for _, v := range window {
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(n)
}

// uShaped fits a quadratic over the last window standardized closes and
// accepts only an upward-opening curve whose vertex falls inside the
// window. This keeps V-shaped drops and straight ramps out.
func uShaped(closes []float64, window int, minCurve float64) bool {
	if len(closes) < window {
		return false
	}
	std, err := stats.Standardize(closes[len(closes)-window:])
	if err != nil {
		return false
	}
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	q, err := stats.FitQuadratic(xs, std)
	if err != nil {
		return false
	}
	if q.A <= minCurve {
		return false
	}
	v := q.VertexX()
	return v >= 0 && v <= float64(window-1)
}

package breakout

import (
	"math"

	"swing-scanner/internal/stats"
)

const (
	trendlineWindow     = 120
	trendlineProminence = 0.30 // fraction of the window's stddev
	trendlineMinDist    = 5
	trendlineTouchTol   = 0.008
	trendlineMinTouches = 2
)

// Trendline is a descending resistance line fitted through two swing
// highs, expressed in window-local bar indices.
type Trendline struct {
	Slope     float64
	Intercept float64
	Touches   int
	window    int
}

// ValueAt returns the line's price at a window-local bar index.
func (t *Trendline) ValueAt(idx int) float64 {
	return t.Slope*float64(idx) + t.Intercept
}

// Today returns the line's price projected to the most recent bar.
func (t *Trendline) Today() float64 {
	return t.ValueAt(t.window - 1)
}

// FitTrendline fits a descending trendline over the last <=120 daily
// highs. Peaks need prominence of at least 30% of the window's standard
// deviation and 5 bars of separation; the two most prominent anchor the
// line. The fit is rejected unless the slope is negative and at least
// two bars' highs sit within 0.8% of the extrapolated line.
func FitTrendline(highs []float64) (*Trendline, bool) {
	if len(highs) > trendlineWindow {
		highs = highs[len(highs)-trendlineWindow:]
	}
	if len(highs) < 2*trendlineMinDist {
		return nil, false
	}

	sd := popStdDev(highs)
	if sd <= 0 || math.IsNaN(sd) {
		return nil, false
	}

	peaks := stats.FindPeaks(highs, trendlineProminence*sd, trendlineMinDist)
	if len(peaks) < 2 {
		return nil, false
	}

	// Two most prominent, then back into chronological order.
	first, second := peaks[0], peaks[0]
	for _, p := range peaks[1:] {
		if p.Prominence > first.Prominence {
			first, second = p, first
		} else if p.Prominence > second.Prominence || second.Index == first.Index {
			second = p
		}
	}
	if first.Index == second.Index {
		return nil, false
	}
	if first.Index > second.Index {
		first, second = second, first
	}

	slope := (second.Value - first.Value) / float64(second.Index-first.Index)
	if slope >= 0 {
		return nil, false
	}
	line := &Trendline{
		Slope:     slope,
		Intercept: first.Value - slope*float64(first.Index),
		window:    len(highs),
	}

	for i, h := range highs {
		v := line.ValueAt(i)
		if v > 0 && math.Abs(h-v) <= trendlineTouchTol*v {
			line.Touches++
		}
	}
	if line.Touches < trendlineMinTouches {
		return nil, false
	}
	return line, true
}

func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

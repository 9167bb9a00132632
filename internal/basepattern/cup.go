package basepattern

import (
	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
	"swing-scanner/internal/stats"
)

// cup holds the anchor geometry of a detected cup, in window-local bar
// indices.
type cup struct {
	leftPeakIdx int
	leftPeak    float64
	bottomIdx   int
	bottom      float64
	rimIdx      int
	rim         float64
	depth       float64
	span        int
}

// handle holds the pullback found after the cup rim.
type handle struct {
	high float64
	low  float64
}

// cupHandle scans the trailing window for a cup-and-handle base. The
// pivot is the cup's right rim; the handle is a shallow quiet pullback
// that holds the cup's upper half.
func (e *Engine) cupHandle(s *snapshot, rs RSContext) *models.Setup {
	window := s.closes
	if len(window) > e.cfg.CupWindow {
		window = window[len(window)-e.cfg.CupWindow:]
	}
	volumes := s.volumes[len(s.volumes)-len(window):]

	c, ok := e.findCup(window)
	if !ok || !e.cupIsUShaped(window, c) {
		return nil
	}
	h, ok := e.findHandle(window, volumes, c, s.volSMA50)
	if !ok {
		return nil
	}

	signal, ok := e.classify(s, h.high)
	if !ok {
		return nil
	}

	// Pre-breakout volume must already be drying up.
	volDry := indicators.TailMean(s.volumes, 5) / s.volSMA50
	if volDry > e.cfg.CupVolDryMax {
		return nil
	}

	levels, ok := e.planner.Plan(s.high, s.low, h.low, s.atr14)
	if !ok {
		return nil
	}

	offset := len(s.bars) - len(window)
	score := e.qualityScore(c.depth, e.cfg.CupMaxDepth, volDry, rs)
	return &models.Setup{
		BaseType:     models.BaseCupHandle,
		Signal:       signal,
		Entry:        levels.Entry,
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
		RiskReward:   levels.RiskReward,
		QualityScore: score,
		BaseDepthPct: c.depth * 100,
		BaseLength:   len(window) - 1 - c.leftPeakIdx,
		VolumeDryPct: volDry * 100,
		VolumeRatio:  s.volRatio,
		Geometry: &models.BaseGeometry{
			LeftPeakDate:   s.bars[offset+c.leftPeakIdx].Date,
			LeftPeakPrice:  c.leftPeak,
			CupBottomDate:  s.bars[offset+c.bottomIdx].Date,
			CupBottomPrice: c.bottom,
			RightRimDate:   s.bars[offset+c.rimIdx].Date,
			RightRimPrice:  c.rim,
			HandleHigh:     h.high,
			HandleLow:      h.low,
		},
	}
}

// findCup locates left peak, bottom, and right rim in the window. The
// final bar is excluded from the rim search so a breakout bar cannot
// become its own pivot.
func (e *Engine) findCup(window []float64) (cup, bool) {
	if len(window) < 30 {
		return cup{}, false
	}

	twoThirds := len(window) * 2 / 3
	if twoThirds < 10 {
		return cup{}, false
	}
	peakIdx := argmax(window[:twoThirds])
	peak := window[peakIdx]
	if peak <= 0 {
		return cup{}, false
	}

	afterPeak := window[peakIdx:]
	if len(afterPeak) < 5 {
		return cup{}, false
	}
	bottomIdx := peakIdx + argmin(afterPeak)
	bottom := window[bottomIdx]

	depth := (peak - bottom) / peak
	if depth < e.cfg.CupMinDepth || depth > e.cfg.CupMaxDepth {
		return cup{}, false
	}

	afterBottom := window[bottomIdx : len(window)-1]
	if len(afterBottom) < 5 {
		return cup{}, false
	}
	rimIdx := bottomIdx + argmax(afterBottom)
	rim := window[rimIdx]

	if (peak-rim)/peak > e.cfg.CupRimTolerance {
		return cup{}, false
	}
	span := rimIdx - peakIdx
	if span < e.cfg.CupMinSpan {
		return cup{}, false
	}

	return cup{
		leftPeakIdx: peakIdx,
		leftPeak:    peak,
		bottomIdx:   bottomIdx,
		bottom:      bottom,
		rimIdx:      rimIdx,
		rim:         rim,
		depth:       depth,
		span:        span,
	}, true
}

// cupIsUShaped fits a quadratic over the cup segment and accepts only
// an upward-opening curve with its vertex inside the segment. Rejects
// V-shaped drops that happen to satisfy the depth bounds.
func (e *Engine) cupIsUShaped(window []float64, c cup) bool {
	segment := window[c.leftPeakIdx : c.rimIdx+1]
	if len(segment) < 6 {
		return false
	}
	std, err := stats.Standardize(segment)
	if err != nil {
		return false
	}
	xs := make([]float64, len(std))
	for i := range xs {
		xs[i] = float64(i)
	}
	q, err := stats.FitQuadratic(xs, std)
	if err != nil || q.A <= 0 {
		return false
	}
	v := q.VertexX()
	return v >= 0 && v <= float64(len(std)-1)
}

// findHandle looks for a 3-15% pullback in the bars after the rim that
// holds the cup's upper half on contracting volume.
func (e *Engine) findHandle(window, volumes []float64, c cup, volSMA50 float64) (handle, bool) {
	afterRim := window[c.rimIdx:]
	if len(afterRim) < 6 {
		return handle{}, false
	}
	if len(afterRim) > e.cfg.HandleMaxBars {
		afterRim = afterRim[:e.cfg.HandleMaxBars]
	}

	search := afterRim[1:] // the rim bar itself is not part of the handle
	if len(search) < 4 {
		return handle{}, false
	}
	low := search[argmin(search)]

	pullback := (c.rim - low) / c.rim
	if pullback < e.cfg.HandleMinPull || pullback > e.cfg.HandleMaxPull {
		return handle{}, false
	}
	if low < (c.leftPeak+c.bottom)/2 {
		return handle{}, false
	}

	// The first bars of the handle must print below average volume.
	handleVols := volumes[c.rimIdx:]
	if len(handleVols) >= 4 && volSMA50 > 0 {
		if indicators.Mean(handleVols[1:4]) >= volSMA50 {
			return handle{}, false
		}
	}

	return handle{high: c.rim, low: low}, true
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}

func argmin(values []float64) int {
	best := 0
	for i, v := range values[1:] {
		if v < values[best] {
			best = i + 1
		}
	}
	return best
}

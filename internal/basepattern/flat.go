package basepattern

import (
	"math"

	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
)

// flatBase scans backward for the longest trailing window that traded
// in a tight high-to-low range. The pivot is the highest close in the
// base; the intraday extremes define depth and the stop.
func (e *Engine) flatBase(s *snapshot, rs RSContext) *models.Setup {
	maxLB := e.cfg.FlatMaxLookback
	if len(s.bars) < maxLB {
		maxLB = len(s.bars)
	}

	highs := indicators.Highs(s.bars)
	lows := indicators.Lows(s.bars)

	lookback := 0
	for lb := maxLB; lb >= e.cfg.FlatMinLookback; lb-- {
		hi := maxOf(highs[len(highs)-lb:])
		lo := minOf(lows[len(lows)-lb:])
		if hi > 0 && (hi-lo)/hi <= e.cfg.FlatMaxDepth {
			lookback = lb
			break
		}
	}
	if lookback == 0 {
		return nil
	}

	baseHigh := maxOf(highs[len(highs)-lookback:])
	baseLow := minOf(lows[len(lows)-lookback:])
	if baseHigh <= 0 {
		return nil
	}
	depth := (baseHigh - baseLow) / baseHigh

	// The close must sit near the top of the base.
	if span := baseHigh - baseLow; span > 0 {
		if (s.close-baseLow)/span < e.cfg.FlatMinPosition {
			return nil
		}
	}

	// Volume contraction across the base.
	vol10 := indicators.TailMean(s.volumes, 10)
	if math.IsNaN(vol10) {
		return nil
	}
	volDry := vol10 / s.volSMA50
	if volDry > e.cfg.FlatVolDryMax {
		return nil
	}

	// The breakout pivot is the highest close, not the intraday high.
	pivot := maxOf(s.closes[len(s.closes)-lookback:])
	signal, ok := e.classify(s, pivot)
	if !ok {
		return nil
	}

	levels, ok := e.planner.Plan(s.high, s.low, baseLow, s.atr14)
	if !ok {
		return nil
	}

	score := e.qualityScore(depth, e.cfg.FlatMaxDepth, volDry, rs)
	startIdx := len(s.bars) - lookback
	return &models.Setup{
		BaseType:     models.BaseFlat,
		Signal:       signal,
		Entry:        levels.Entry,
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
		RiskReward:   levels.RiskReward,
		QualityScore: score,
		BaseDepthPct: depth * 100,
		BaseLength:   lookback,
		VolumeDryPct: volDry * 100,
		VolumeRatio:  s.volRatio,
		Geometry: &models.BaseGeometry{
			BaseStartDate: s.bars[startIdx].Date,
			BaseEndDate:   s.bars[len(s.bars)-1].Date,
			BaseHigh:      baseHigh,
			BaseLow:       baseLow,
		},
	}
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Package zones extracts horizontal support/resistance bands from daily
// bars. Weekly pivots and closes form a price cloud, a gaussian kernel
// density estimate over the cloud surfaces its crowded levels, and each
// surviving density peak becomes an ATR-sized band.
package zones

import (
	"math"
	"sort"

	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
	"swing-scanner/internal/stats"
)

// Config holds the extraction tunables.
type Config struct {
	ATRPeriod         int     // ATR lookback for band sizing and merging
	MinWeeks          int     // minimum weekly bars after resampling
	MinCloudPoints    int     // minimum price-cloud size for the KDE
	GridPoints        int     // density evaluation grid resolution
	GridPadLow        float64 // grid lower bound = min(cloud) * GridPadLow
	GridPadHigh       float64 // grid upper bound = max(cloud) * GridPadHigh
	PeakOrder         int     // strict local-maximum order on the density curve
	DensityPercentile float64 // drop peaks below this percentile of peak density
	MergeATRMult      float64 // merge peak levels closer than this many ATRs
	ZoneATRMult       float64 // half-width of each band in ATRs
}

// DefaultConfig returns the standard extraction tunables.
func DefaultConfig() Config {
	return Config{
		ATRPeriod:         14,
		MinWeeks:          10,
		MinCloudPoints:    10,
		GridPoints:        600,
		GridPadLow:        0.98,
		GridPadHigh:       1.02,
		PeakOrder:         8,
		DensityPercentile: 30,
		MergeATRMult:      1.0,
		ZoneATRMult:       0.2,
	}
}

// Extractor turns daily bars into support/resistance zones.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor. A zero-value Config is replaced by
// the defaults.
func NewExtractor(cfg Config) *Extractor {
	if cfg.GridPoints == 0 {
		cfg = DefaultConfig()
	}
	return &Extractor{cfg: cfg}
}

// Extract returns the zones for a ticker, sorted ascending by level.
// Extraction is best-effort: short history, a degenerate ATR, or a
// density curve with no usable peaks all yield an empty list, never an
// error. Callers treat an empty list as "no horizontal structure".
func (e *Extractor) Extract(bars []models.PriceBar) []models.Zone {
	if len(bars) == 0 {
		return nil
	}

	atr := indicators.Last(indicators.ATR(bars, e.cfg.ATRPeriod))
	if !indicators.Defined(atr) || atr <= 0 {
		return nil
	}

	weeks := resampleWeekly(bars)
	if len(weeks) < e.cfg.MinWeeks {
		return nil
	}

	cloud := e.priceCloud(weeks)
	if len(cloud) < e.cfg.MinCloudPoints {
		return nil
	}

	levels := e.densityLevels(cloud)
	if len(levels) == 0 {
		return nil
	}
	levels = mergeLevels(levels, e.cfg.MergeATRMult*atr)

	lastClose := bars[len(bars)-1].AdjClose
	out := make([]models.Zone, 0, len(levels))
	for _, level := range levels {
		z := models.Zone{
			Level: level,
			Upper: level + e.cfg.ZoneATRMult*atr,
			Lower: level - e.cfg.ZoneATRMult*atr,
			ATR:   atr,
			Type:  models.ZoneSupport,
		}
		if level > lastClose {
			z.Type = models.ZoneResistance
		}
		out = append(out, z)
	}
	return out
}

// weeklyBar is one ISO-week aggregate.
type weeklyBar struct {
	High  float64
	Low   float64
	Close float64
}

// resampleWeekly aggregates ascending daily bars into ISO weeks:
// last close, max high, min low per week.
func resampleWeekly(bars []models.PriceBar) []weeklyBar {
	var weeks []weeklyBar
	curYear, curWeek := -1, -1
	for _, b := range bars {
		y, w := b.Date.ISOWeek()
		if y != curYear || w != curWeek {
			weeks = append(weeks, weeklyBar{High: b.High, Low: b.Low, Close: b.AdjClose})
			curYear, curWeek = y, w
			continue
		}
		last := &weeks[len(weeks)-1]
		last.High = math.Max(last.High, b.High)
		last.Low = math.Min(last.Low, b.Low)
		last.Close = b.AdjClose
	}
	return weeks
}

// priceCloud gathers weekly closes plus pivot highs and pivot lows into
// one sample set for the density estimate.
func (e *Extractor) priceCloud(weeks []weeklyBar) []float64 {
	highs := make([]float64, len(weeks))
	lows := make([]float64, len(weeks))
	cloud := make([]float64, 0, 2*len(weeks))
	for i, w := range weeks {
		highs[i] = w.High
		lows[i] = w.Low
		if w.Close > 0 {
			cloud = append(cloud, w.Close)
		}
	}

	order := len(weeks) / 20
	if order < 2 {
		order = 2
	}
	for _, i := range stats.LocalMaxima(highs, order, false) {
		if highs[i] > 0 {
			cloud = append(cloud, highs[i])
		}
	}
	for _, i := range stats.LocalMinima(lows, order, false) {
		if lows[i] > 0 {
			cloud = append(cloud, lows[i])
		}
	}
	return cloud
}

// densityLevels evaluates the KDE over the price cloud and returns the
// grid prices of the significant density peaks, ascending.
func (e *Extractor) densityLevels(cloud []float64) []float64 {
	kde, err := stats.NewKernelDensity(cloud)
	if err != nil {
		return nil
	}

	lo, hi := cloud[0], cloud[0]
	for _, v := range cloud {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	grid, density := kde.EvaluateGrid(lo*e.cfg.GridPadLow, hi*e.cfg.GridPadHigh, e.cfg.GridPoints)

	peaks := stats.LocalMaxima(density, e.cfg.PeakOrder, true)
	if len(peaks) == 0 {
		return nil
	}

	heights := make([]float64, len(peaks))
	for i, p := range peaks {
		heights[i] = density[p]
	}
	floor := stats.Percentile(heights, e.cfg.DensityPercentile)

	levels := make([]float64, 0, len(peaks))
	for i, p := range peaks {
		if heights[i] >= floor {
			levels = append(levels, grid[p])
		}
	}
	sort.Float64s(levels)
	return levels
}

// mergeLevels collapses ascending levels closer than maxGap into their
// running mean, so stacked density peaks become one band.
func mergeLevels(levels []float64, maxGap float64) []float64 {
	if len(levels) == 0 {
		return nil
	}
	merged := make([]float64, 0, len(levels))
	groupSum := levels[0]
	groupN := 1
	for _, level := range levels[1:] {
		if level-groupSum/float64(groupN) < maxGap {
			groupSum += level
			groupN++
			continue
		}
		merged = append(merged, groupSum/float64(groupN))
		groupSum, groupN = level, 1
	}
	return append(merged, groupSum/float64(groupN))
}

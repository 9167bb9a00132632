// Package basepattern implements the base-pattern engine: cup-and-handle
// and flat-base detection behind a shared Stage-2 trend gate, scored by
// a four-factor quality model. When both sub-patterns qualify only the
// higher-scoring one is emitted.
package basepattern

import (
	"math"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
	"swing-scanner/internal/risk"
)

// Config holds the base-pattern thresholds. Depth and proximity limits
// varied across historical revisions, so they stay tunable.
type Config struct {
	CupWindow        int     // max bars for cup detection
	CupMinDepth      float64 // cup depth lower bound
	CupMaxDepth      float64 // cup depth upper bound
	CupRimTolerance  float64 // rim shortfall vs left peak, at most
	CupMinSpan       int     // minimum bars from left peak to rim
	HandleMaxBars    int     // handle search length after the rim
	HandleMinPull    float64 // handle pullback lower bound
	HandleMaxPull    float64 // handle pullback upper bound
	CupVolDryMax     float64 // 5d/50d volume ceiling before emitting a cup
	FlatMaxLookback  int     // flat base scan start
	FlatMinLookback  int     // flat base minimum length
	FlatMaxDepth     float64 // flat base high-to-low depth ceiling
	FlatMinPosition  float64 // close position in base range, at least
	FlatVolDryMax    float64 // 10d/50d volume ceiling
	BreakoutVolRatio float64 // BRK volume ratio threshold
	DryProximity     float64 // DRY distance below pivot, at most
	MinQuality       int     // discard setups scoring below this
}

// DefaultConfig returns the standard base-pattern thresholds.
func DefaultConfig() Config {
	return Config{
		CupWindow:        120,
		CupMinDepth:      0.12,
		CupMaxDepth:      0.35,
		CupRimTolerance:  0.10,
		CupMinSpan:       20,
		HandleMaxBars:    26,
		HandleMinPull:    0.03,
		HandleMaxPull:    0.15,
		CupVolDryMax:     0.85,
		FlatMaxLookback:  60,
		FlatMinLookback:  25,
		FlatMaxDepth:     0.12,
		FlatMinPosition:  0.75,
		FlatVolDryMax:    0.75,
		BreakoutVolRatio: 1.2,
		DryProximity:     0.010,
		MinQuality:       25,
	}
}

// RSContext carries the relative-strength inputs the quality score
// consumes.
type RSContext struct {
	ReturnDiff3M float64 // stock minus benchmark trailing 63-day return
	BlueDot      bool
}

// Inputs bundle one ticker's data for a single evaluation.
type Inputs struct {
	Ticker string
	Sector string
	Bars   []models.PriceBar
	RS     RSContext
}

// Engine evaluates both base sub-patterns.
type Engine struct {
	cfg     Config
	planner *risk.Planner
}

// NewEngine creates a base-pattern engine. A zero-value Config is
// replaced by the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.CupWindow == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, planner: risk.NewPlanner()}
}

// snapshot caches state shared by both sub-patterns.
type snapshot struct {
	bars     []models.PriceBar
	closes   []float64
	volumes  []float64
	high     float64
	low      float64
	close    float64
	atr14    float64
	volSMA50 float64
	volRatio float64
}

// Evaluate runs both sub-patterns and returns the higher-scoring
// qualifying setup, or nil when neither clears the quality floor.
func (e *Engine) Evaluate(in Inputs) (*models.Setup, error) {
	if len(in.Bars) < 60 {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientData,
			"base pattern needs 60 bars, have %d", len(in.Bars))
	}
	snap, ok := e.buildSnapshot(in)
	if !ok || !e.stageTwo(snap) {
		return nil, nil
	}

	var best *models.Setup
	for _, s := range []*models.Setup{e.cupHandle(snap, in.RS), e.flatBase(snap, in.RS)} {
		if s == nil || s.QualityScore < e.cfg.MinQuality {
			continue
		}
		if best == nil || s.QualityScore > best.QualityScore {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Ticker = in.Ticker
	best.Sector = in.Sector
	best.Type = models.SetupBase
	best.SetupDate = in.Bars[len(in.Bars)-1].Date
	best.RSVsBenchmark = rsPercent(in.RS.ReturnDiff3M)
	best.RSBlueDot = in.RS.BlueDot
	return best, nil
}

func (e *Engine) buildSnapshot(in Inputs) (*snapshot, bool) {
	closes := indicators.AdjCloses(in.Bars)
	for _, c := range closes {
		if math.IsNaN(c) {
			return nil, false
		}
	}
	last := in.Bars[len(in.Bars)-1]
	snap := &snapshot{
		bars:     in.Bars,
		closes:   closes,
		volumes:  indicators.Volumes(in.Bars),
		high:     last.High,
		low:      last.Low,
		close:    last.AdjClose,
		atr14:    indicators.Last(indicators.ATR(in.Bars, 14)),
		volSMA50: indicators.Last(indicators.SMA(indicators.Volumes(in.Bars), 50)),
	}
	if !indicators.Defined(snap.atr14) || snap.atr14 <= 0 {
		return nil, false
	}
	if !indicators.Defined(snap.volSMA50) || snap.volSMA50 <= 0 {
		return nil, false
	}
	snap.volRatio = last.Volume / snap.volSMA50
	return snap, true
}

// stageTwo is the shared trend gate: close over the 50- and 200-day
// SMAs, at least 30% off the trailing-year low, and a rising 200-day
// SMA. SMAs that have not warmed up do not veto; a fresh listing is
// judged on what history it has.
func (e *Engine) stageTwo(s *snapshot) bool {
	sma50 := indicators.Last(indicators.SMA(s.closes, 50))
	if indicators.Defined(sma50) && sma50 > 0 && s.close < sma50 {
		return false
	}

	sma200 := indicators.SMA(s.closes, 200)
	last200 := indicators.Last(sma200)
	if indicators.Defined(last200) && last200 > 0 {
		if s.close < last200 {
			return false
		}
		if len(sma200) >= 21 {
			prev := sma200[len(sma200)-21]
			if indicators.Defined(prev) && prev > 0 && last200 <= prev {
				return false
			}
		}
	}

	lows := indicators.Lows(s.bars)
	if len(lows) > 252 {
		lows = lows[len(lows)-252:]
	}
	yearLow := lows[0]
	for _, l := range lows[1:] {
		yearLow = math.Min(yearLow, l)
	}
	if yearLow > 0 && s.close < yearLow*1.30 {
		return false
	}
	return true
}

// classify maps the close against a pivot into BRK or DRY, or rejects.
// A close above the pivot on quiet volume still counts as DRY while it
// stays within the proximity band.
func (e *Engine) classify(s *snapshot, pivot float64) (models.BaseSignal, bool) {
	if pivot <= 0 {
		return "", false
	}
	if s.close > pivot && s.volRatio >= e.cfg.BreakoutVolRatio {
		return models.SignalBreakout, true
	}
	if (pivot-s.close)/pivot <= e.cfg.DryProximity {
		return models.SignalDry, true
	}
	return "", false
}

func rsPercent(diff float64) float64 {
	if math.IsNaN(diff) {
		return 0
	}
	return diff * 100
}

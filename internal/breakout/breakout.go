// Package breakout implements the breakout/consolidation engine: five
// detection paths evaluated in strict priority order over a shared
// indicator snapshot, plus a near-breakout watchlist fallback.
package breakout

import (
	"math"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
	"swing-scanner/internal/risk"
	"swing-scanner/internal/rsline"
)

// Config holds the path thresholds. The historical revisions of this
// engine disagreed on several of these, so they stay tunable.
type Config struct {
	ConfirmedVolRatio  float64 // path 1 minimum volume ratio
	ConfirmedMinAbove  float64 // path 1 close above zone upper, lower bound
	ConfirmedMaxAbove  float64 // path 1 close above zone upper, upper bound
	TrendlineVolRatio  float64 // path 2 minimum volume ratio
	LevelVolRatio      float64 // path 3 minimum volume ratio
	LevelMinAbove      float64 // path 3 close above zone upper, lower bound
	LevelMaxAbove      float64 // path 3 close above zone upper, upper bound
	RSLeadMaxBelow     float64 // path 4 close below zone upper, at most
	CoilQuadWindow     int     // path 5 quadratic fit window
	CoilQuadMinCurve   float64 // path 5 minimum upward curvature
	CoilAtZoneVolRatio float64 // path 5 volume ratio when already at the zone
	WatchMaxBelow      float64 // watchlist close below level, at most
	ReturnDays         int     // relative-performance lookback
}

// DefaultConfig returns the standard breakout thresholds.
func DefaultConfig() Config {
	return Config{
		ConfirmedVolRatio:  1.5,
		ConfirmedMinAbove:  0.005,
		ConfirmedMaxAbove:  0.030,
		TrendlineVolRatio:  1.2,
		LevelVolRatio:      1.15,
		LevelMinAbove:      0.001,
		LevelMaxAbove:      0.025,
		RSLeadMaxBelow:     0.03,
		CoilQuadWindow:     15,
		CoilQuadMinCurve:   0.005,
		CoilAtZoneVolRatio: 1.5,
		WatchMaxBelow:      0.015,
		ReturnDays:         63,
	}
}

// Inputs bundle one ticker's data for a single evaluation.
type Inputs struct {
	Ticker        string
	Sector        string
	Bars          []models.PriceBar
	Zones         []models.Zone
	RS            *rsline.Line // nil when unavailable
	BenchReturn3M float64      // benchmark trailing return, NaN when unknown
}

// Engine evaluates the five breakout paths.
type Engine struct {
	cfg     Config
	planner *risk.Planner
}

// NewEngine creates a breakout engine. A zero-value Config is replaced
// by the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.CoilQuadWindow == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, planner: risk.NewPlanner()}
}

// snapshot caches the shared indicator state all paths read.
type snapshot struct {
	bars        []models.PriceBar
	closes      []float64
	high        float64
	low         float64
	close       float64
	ema8        float64
	ema20       float64
	sma50       float64
	volSMA50    float64
	atr14       float64
	volumeRatio float64
	returnDiff  float64 // stock vs benchmark trailing return, may be NaN
	blueDot     bool
	resistance  []models.Zone // ascending by level
	trendline   *Trendline    // nil when no valid descending line
}

// path is one priority step: it either claims the snapshot and returns
// a setup, or passes.
type path struct {
	name  models.BreakoutPath
	check func(*Engine, *snapshot) *models.Setup
}

// paths in strict priority order. The first claim wins; later paths are
// never consulted.
var paths = []path{
	{models.PathConfirmed, (*Engine).confirmedBreakout},
	{models.PathTrendline, (*Engine).trendlineBreakout},
	{models.PathLevel, (*Engine).levelBreakout},
	{models.PathRSLead, (*Engine).rsLeadBreakout},
	{models.PathCoiledSpring, (*Engine).coiledSpring},
}

// Evaluate runs the priority-ordered paths for one ticker. A nil setup
// with a nil error means no path fired; an error means the snapshot
// could not be built (insufficient data).
func (e *Engine) Evaluate(in Inputs) (*models.Setup, error) {
	snap, err := e.buildSnapshot(in)
	if err != nil {
		return nil, err
	}
	if !e.preFilter(snap) {
		return nil, nil
	}
	for _, p := range paths {
		if s := p.check(e, snap); s != nil {
			s.Ticker = in.Ticker
			s.Sector = in.Sector
			s.Type = models.SetupBreakout
			s.Path = p.name
			s.SetupDate = in.Bars[len(in.Bars)-1].Date
			return s, nil
		}
	}
	return nil, nil
}

// NearBreakout is the watchlist fallback: no path fired, but the close
// sits just below either the next resistance band or the descending
// trendline. No risk math; the record only names the level being
// approached.
func (e *Engine) NearBreakout(in Inputs) *models.Setup {
	snap, err := e.buildSnapshot(in)
	if err != nil || !e.preFilter(snap) {
		return nil
	}

	bestDist := math.Inf(1)
	var level models.WatchLevel
	var price float64

	for _, z := range snap.resistance {
		if z.Upper <= snap.close {
			continue
		}
		d := (z.Upper - snap.close) / snap.close
		if d < bestDist {
			bestDist, level, price = d, models.WatchZone, z.Upper
		}
		break // zones ascend; the first upper above close is the nearest
	}
	if snap.trendline != nil {
		if v := snap.trendline.Today(); v > snap.close {
			if d := (v - snap.close) / snap.close; d < bestDist {
				bestDist, level, price = d, models.WatchTrendline, v
			}
		}
	}
	if bestDist > e.cfg.WatchMaxBelow {
		return nil
	}

	return &models.Setup{
		Ticker:      in.Ticker,
		Sector:      in.Sector,
		Type:        models.SetupWatchlist,
		SetupDate:   in.Bars[len(in.Bars)-1].Date,
		WatchLevel:  level,
		WatchPrice:  price,
		DistancePct: bestDist * 100,
		VolumeRatio: snap.volumeRatio,
		RSBlueDot:   snap.blueDot,
	}
}

func (e *Engine) buildSnapshot(in Inputs) (*snapshot, error) {
	if len(in.Bars) < 50 {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientData,
			"breakout needs 50 bars, have %d", len(in.Bars))
	}

	closes := indicators.AdjCloses(in.Bars)
	last := in.Bars[len(in.Bars)-1]

	snap := &snapshot{
		bars:     in.Bars,
		closes:   closes,
		high:     last.High,
		low:      last.Low,
		close:    last.AdjClose,
		ema8:     indicators.Last(indicators.EMA(closes, 8)),
		ema20:    indicators.Last(indicators.EMA(closes, 20)),
		sma50:    indicators.Last(indicators.SMA(closes, 50)),
		volSMA50: indicators.Last(indicators.SMA(indicators.Volumes(in.Bars), 50)),
		atr14:    indicators.Last(indicators.ATR(in.Bars, 14)),
	}

	stockReturn := indicators.ReturnOver(closes, e.cfg.ReturnDays)
	snap.returnDiff = stockReturn - in.BenchReturn3M
	if in.RS != nil {
		snap.blueDot = in.RS.BlueDot()
	}
	for _, z := range in.Zones {
		if z.Type == models.ZoneResistance {
			snap.resistance = append(snap.resistance, z)
		}
	}
	if line, ok := FitTrendline(indicators.Highs(in.Bars)); ok {
		snap.trendline = line
	}
	return snap, nil
}

// preFilter is the shared trend and volume gate: short EMA over long,
// close over the 50-day SMA, and a usable volume baseline.
func (e *Engine) preFilter(s *snapshot) bool {
	if !indicators.Defined(s.ema8) || !indicators.Defined(s.ema20) ||
		!indicators.Defined(s.sma50) || !indicators.Defined(s.volSMA50) {
		return false
	}
	if s.volSMA50 <= 0 {
		return false
	}
	s.volumeRatio = s.bars[len(s.bars)-1].Volume / s.volSMA50
	return s.ema8 > s.ema20 && s.close > s.sma50
}

// confirmedBreakout: heavy volume, outperforming the benchmark, and the
// close freshly clearing the highest resistance band it has taken out.
func (e *Engine) confirmedBreakout(s *snapshot) *models.Setup {
	if s.volumeRatio < e.cfg.ConfirmedVolRatio {
		return nil
	}
	if !(s.returnDiff > 0) { // NaN fails too
		return nil
	}
	zone, ok := highestCleared(s.resistance, s.close, e.cfg.ConfirmedMinAbove, e.cfg.ConfirmedMaxAbove)
	if !ok {
		return nil
	}
	return e.planned(s, zone.Lower, &models.Setup{
		ResistanceLevel: zone.Level,
		VolumeRatio:     s.volumeRatio,
	})
}

// trendlineBreakout: close punching above a fitted descending line on
// above-average volume.
func (e *Engine) trendlineBreakout(s *snapshot) *models.Setup {
	if s.trendline == nil || s.volumeRatio < e.cfg.TrendlineVolRatio {
		return nil
	}
	lineToday := s.trendline.Today()
	if lineToday <= 0 || s.close <= lineToday {
		return nil
	}
	return e.planned(s, lineToday*0.98, &models.Setup{
		ResistanceLevel: lineToday,
		VolumeRatio:     s.volumeRatio,
	})
}

// levelBreakout: a quieter push through the highest resistance band,
// with relative strength at least flat.
func (e *Engine) levelBreakout(s *snapshot) *models.Setup {
	if len(s.resistance) == 0 || s.volumeRatio < e.cfg.LevelVolRatio {
		return nil
	}
	if !(s.returnDiff >= 0) {
		return nil
	}
	top := s.resistance[len(s.resistance)-1]
	above := (s.close - top.Upper) / top.Upper
	if above < e.cfg.LevelMinAbove || above > e.cfg.LevelMaxAbove {
		return nil
	}
	return e.planned(s, top.Lower, &models.Setup{
		ResistanceLevel: top.Level,
		VolumeRatio:     s.volumeRatio,
	})
}

// rsLeadBreakout: the RS line is at a fresh high while price is still
// coiled just under the highest resistance band. Volume is not
// consulted; the RS high is the tell.
func (e *Engine) rsLeadBreakout(s *snapshot) *models.Setup {
	if !s.blueDot || len(s.resistance) == 0 {
		return nil
	}
	top := s.resistance[len(s.resistance)-1]
	if s.close >= top.Upper {
		return nil
	}
	if (top.Upper-s.close)/s.close > e.cfg.RSLeadMaxBelow {
		return nil
	}
	return e.planned(s, top.Lower, &models.Setup{
		ResistanceLevel: top.Level,
		VolumeRatio:     s.volumeRatio,
		RSBlueDot:       true,
	})
}

// coiledSpring: range contraction plus a U-shaped closing curve under
// (or right at) the nearest resistance band, with volume either drying
// up below the band or surging at it.
func (e *Engine) coiledSpring(s *snapshot) *models.Setup {
	trs := indicators.TrueRange(s.bars)
	mean5 := indicators.TailMean(trs, 5)
	mean20 := priorMean(trs, 5, 20)
	if math.IsNaN(mean5) || math.IsNaN(mean20) || !(mean5 < mean20) {
		return nil
	}

	if !uShaped(s.closes, e.cfg.CoilQuadWindow, e.cfg.CoilQuadMinCurve) {
		return nil
	}

	zone, ok := nearestResistance(s.resistance, s.close)
	if !ok {
		return nil
	}
	if s.close < zone.Lower {
		// Below the band: need the dry-up.
		vols := indicators.Volumes(s.bars)
		if !(indicators.TailMean(vols, 3) < s.volSMA50) {
			return nil
		}
	} else if s.volumeRatio < e.cfg.CoilAtZoneVolRatio {
		return nil
	}

	return e.planned(s, zone.Lower, &models.Setup{
		ResistanceLevel: zone.Level,
		VolumeRatio:     s.volumeRatio,
		TRContraction:   mean5 / mean20,
	})
}

// planned applies the shared risk math and fills the trade levels, or
// rejects the candidate entirely.
func (e *Engine) planned(s *snapshot, stopRef float64, setup *models.Setup) *models.Setup {
	levels, ok := e.planner.Plan(s.high, s.low, stopRef, s.atr14)
	if !ok {
		return nil
	}
	setup.Entry = levels.Entry
	setup.StopLoss = levels.StopLoss
	setup.TakeProfit = levels.TakeProfit
	setup.RiskReward = levels.RiskReward
	return setup
}

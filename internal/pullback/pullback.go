// Package pullback implements the pullback engine: a strict path that
// wants a same-day rejection off a support band with a CCI hook out of
// oversold, and a relaxed path that accepts a quiet drift back to a
// rising EMA.
package pullback

import (
	"math"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/indicators"
	"swing-scanner/internal/models"
	"swing-scanner/internal/risk"
)

// Config holds the pullback thresholds.
type Config struct {
	CCIPeriod     int
	CCIOversold   float64 // strict path: yesterday's CCI below this
	ZoneTolerance float64 // strict path: slack below a zone's lower bound
	EMAProximity  float64 // relaxed path: close within this fraction of an EMA
	DryVolumeDays int     // relaxed path: short volume average length
}

// DefaultConfig returns the standard pullback thresholds.
func DefaultConfig() Config {
	return Config{
		CCIPeriod:     20,
		CCIOversold:   -100,
		ZoneTolerance: 0.005,
		EMAProximity:  0.008,
		DryVolumeDays: 3,
	}
}

// Inputs bundle one ticker's data for a single evaluation.
type Inputs struct {
	Ticker string
	Sector string
	Bars   []models.PriceBar
	Zones  []models.Zone
}

// Engine evaluates the strict and relaxed pullback paths.
type Engine struct {
	cfg     Config
	planner *risk.Planner
}

// NewEngine creates a pullback engine. A zero-value Config is replaced
// by the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.CCIPeriod == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, planner: risk.NewPlanner()}
}

type snapshot struct {
	high, low, close float64
	ema8, ema20      float64
	sma50, volSMA50  float64
	atr14            float64
	cciToday         float64
	cciYesterday     float64
	volume3          float64
	support          []models.Zone // ascending by level
	date             models.PriceBar
}

// Evaluate tries the strict path, then the relaxed path. A nil setup
// with nil error means neither fired.
func (e *Engine) Evaluate(in Inputs) (*models.Setup, error) {
	snap, err := e.buildSnapshot(in)
	if err != nil {
		return nil, err
	}
	if !trendFilter(snap) {
		return nil, nil
	}
	if s := e.strict(snap); s != nil {
		e.finish(s, in, snap)
		return s, nil
	}
	if s := e.relaxed(snap); s != nil {
		s.Relaxed = true
		e.finish(s, in, snap)
		return s, nil
	}
	return nil, nil
}

func (e *Engine) buildSnapshot(in Inputs) (*snapshot, error) {
	need := e.cfg.CCIPeriod + 1
	if need < 51 {
		need = 51
	}
	if len(in.Bars) < need {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientData,
			"pullback needs %d bars, have %d", need, len(in.Bars))
	}

	closes := indicators.AdjCloses(in.Bars)
	cci := indicators.CCI(in.Bars, e.cfg.CCIPeriod, 0.015)
	last := in.Bars[len(in.Bars)-1]

	snap := &snapshot{
		high:         last.High,
		low:          last.Low,
		close:        last.AdjClose,
		ema8:         indicators.Last(indicators.EMA(closes, 8)),
		ema20:        indicators.Last(indicators.EMA(closes, 20)),
		sma50:        indicators.Last(indicators.SMA(closes, 50)),
		volSMA50:     indicators.Last(indicators.SMA(indicators.Volumes(in.Bars), 50)),
		atr14:        indicators.Last(indicators.ATR(in.Bars, 14)),
		cciToday:     cci[len(cci)-1],
		cciYesterday: cci[len(cci)-2],
		volume3:      indicators.TailMean(indicators.Volumes(in.Bars), e.cfg.DryVolumeDays),
		date:         last,
	}
	for _, z := range in.Zones {
		if z.Type == models.ZoneSupport {
			snap.support = append(snap.support, z)
		}
	}
	return snap, nil
}

func trendFilter(s *snapshot) bool {
	if !indicators.Defined(s.ema8) || !indicators.Defined(s.ema20) ||
		!indicators.Defined(s.sma50) || !indicators.Defined(s.volSMA50) {
		return false
	}
	return s.volSMA50 > 0 && s.ema8 > s.ema20 && s.close > s.sma50
}

// strict wants the day's low to pierce a short EMA, tag a support band,
// and close back above the 20-EMA while the CCI hooks up from oversold.
func (e *Engine) strict(s *snapshot) *models.Setup {
	if !(s.low <= s.ema8 || s.low <= s.ema20) {
		return nil
	}
	if s.close < s.ema20 {
		return nil
	}
	if !indicators.Defined(s.cciToday) || !indicators.Defined(s.cciYesterday) {
		return nil
	}
	if !(s.cciYesterday < e.cfg.CCIOversold && s.cciToday > s.cciYesterday) {
		return nil
	}

	zone, ok := e.touchedSupport(s)
	if !ok {
		return nil
	}
	levels, ok := e.planner.Plan(s.high, s.low, zone.Lower, s.atr14)
	if !ok {
		return nil
	}
	return &models.Setup{
		Entry:        levels.Entry,
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
		RiskReward:   levels.RiskReward,
		SupportLevel: zone.Level,
	}
}

// relaxed accepts a close hugging the 8- or 20-EMA on drying volume
// with the CCI merely turning up while still negative.
func (e *Engine) relaxed(s *snapshot) *models.Setup {
	if !nearEMA(s.close, s.ema8, e.cfg.EMAProximity) &&
		!nearEMA(s.close, s.ema20, e.cfg.EMAProximity) {
		return nil
	}
	if !indicators.Defined(s.cciToday) || !indicators.Defined(s.cciYesterday) {
		return nil
	}
	if !(s.cciToday > s.cciYesterday && s.cciYesterday < 0) {
		return nil
	}
	if math.IsNaN(s.volume3) || s.volume3 > s.volSMA50 {
		return nil
	}

	stopRef := s.sma50
	supportLevel := s.sma50
	if len(s.support) > 0 {
		stopRef = s.support[0].Level
		supportLevel = s.support[0].Level
	}
	if stopRef >= s.close {
		return nil
	}
	levels, ok := e.planner.Plan(s.high, s.low, stopRef, s.atr14)
	if !ok {
		return nil
	}
	return &models.Setup{
		Entry:        levels.Entry,
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
		RiskReward:   levels.RiskReward,
		SupportLevel: supportLevel,
	}
}

func nearEMA(close, ema, tol float64) bool {
	if !indicators.Defined(ema) || ema <= 0 {
		return false
	}
	return math.Abs(close-ema)/ema <= tol
}

// touchedSupport reports whether the day's low or close sits inside a
// support band, with tolerance slack below the lower bound for the low.
func (e *Engine) touchedSupport(s *snapshot) (models.Zone, bool) {
	for _, z := range s.support {
		lowIn := s.low >= z.Lower*(1-e.cfg.ZoneTolerance) && s.low <= z.Upper
		closeIn := s.close >= z.Lower && s.close <= z.Upper
		if lowIn || closeIn {
			return z, true
		}
	}
	return models.Zone{}, false
}

func (e *Engine) finish(s *models.Setup, in Inputs, snap *snapshot) {
	s.Ticker = in.Ticker
	s.Sector = in.Sector
	s.Type = models.SetupPullback
	s.SetupDate = snap.date.Date
	s.CCIToday = snap.cciToday
	s.CCIYesterday = snap.cciYesterday
	s.EMA8 = snap.ema8
	s.EMA20 = snap.ema20
}

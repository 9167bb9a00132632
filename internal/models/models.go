// Package models provides domain models for the swing scanner.
package models

import (
	"time"
)

// ZoneType classifies a price zone relative to the current close.
type ZoneType string

const (
	ZoneSupport    ZoneType = "SUPPORT"
	ZoneResistance ZoneType = "RESISTANCE"
)

// SetupType identifies which engine produced a setup.
type SetupType string

const (
	SetupBreakout  SetupType = "BREAKOUT"
	SetupPullback  SetupType = "PULLBACK"
	SetupBase      SetupType = "BASE"
	SetupWatchlist SetupType = "WATCHLIST"
)

// BreakoutPath identifies which of the priority-ordered breakout
// detection paths fired.
type BreakoutPath string

const (
	PathConfirmed    BreakoutPath = "CONFIRMED"
	PathTrendline    BreakoutPath = "TRENDLINE"
	PathLevel        BreakoutPath = "LEVEL"
	PathRSLead       BreakoutPath = "RS_LEAD"
	PathCoiledSpring BreakoutPath = "COILED_SPRING"
)

// BaseType identifies the base sub-pattern.
type BaseType string

const (
	BaseCupHandle BaseType = "CUP_HANDLE"
	BaseFlat      BaseType = "FLAT_BASE"
)

// BaseSignal is the trigger state of a base pattern.
type BaseSignal string

const (
	SignalBreakout BaseSignal = "BRK"
	SignalDry      BaseSignal = "DRY"
)

// WatchLevel names the kind of level a watchlist entry is approaching.
type WatchLevel string

const (
	WatchZone      WatchLevel = "ZONE"
	WatchTrendline WatchLevel = "TRENDLINE"
)

// PriceBar represents one daily OHLCV bar. AdjClose is used for all
// derived statistics; the raw open/high/low/close are reserved for
// display and intraday range math.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// Zone is an ATR-sized support or resistance band. Zones are created
// once per ticker per scan and never mutated afterwards.
type Zone struct {
	Level float64
	Upper float64
	Lower float64
	Type  ZoneType
	ATR   float64
}

// Regime is the benchmark market-regime snapshot. A fetch or compute
// failure yields IsBullish=false with an error label: the filter fails
// closed and downstream engines treat it the same as a confirmed
// bearish market.
type Regime struct {
	IsBullish bool
	Close     float64
	EMA20     float64
	Label     string
}

// BaseGeometry records the anchor points of a detected base pattern
// for chart overlays.
type BaseGeometry struct {
	LeftPeakDate   time.Time
	LeftPeakPrice  float64
	CupBottomDate  time.Time
	CupBottomPrice float64
	RightRimDate   time.Time
	RightRimPrice  float64
	HandleHigh     float64
	HandleLow      float64
	BaseStartDate  time.Time
	BaseEndDate    time.Time
	BaseHigh       float64
	BaseLow        float64
}

// Setup is a trade candidate emitted by one engine invocation. A setup
// is immutable after creation; each scan produces a fresh set keyed by
// the scan identifier.
type Setup struct {
	Ticker     string
	Type       SetupType
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	RiskReward float64
	SetupDate  time.Time
	Sector     string

	// Breakout metadata.
	Path            BreakoutPath
	ResistanceLevel float64
	VolumeRatio     float64
	TRContraction   float64

	// Pullback metadata.
	SupportLevel float64
	CCIToday     float64
	CCIYesterday float64
	EMA8         float64
	EMA20        float64
	Relaxed      bool

	// Base-pattern metadata.
	BaseType      BaseType
	Signal        BaseSignal
	QualityScore  int
	BaseDepthPct  float64
	BaseLength    int
	VolumeDryPct  float64
	RSVsBenchmark float64
	Geometry      *BaseGeometry

	// Watchlist metadata.
	WatchLevel  WatchLevel
	WatchPrice  float64
	DistancePct float64
	RSBlueDot   bool
}

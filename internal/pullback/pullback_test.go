package pullback

import (
	"math"
	"testing"
	"time"

	"swing-scanner/internal/models"
)

func barsFrom(closes []float64, spread float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:     base.AddDate(0, 0, i),
			Open:     c,
			High:     c + spread,
			Low:      c - spread,
			Close:    c,
			AdjClose: c,
			Volume:   1e6,
		}
	}
	return bars
}

// Strict path: a steady advance, a two-day shakeout driving the CCI deep
// below -100, then a wide-range day whose low tags the support band and
// whose close recovers the 20-EMA.
func TestStrictPullback(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 80 + 0.2*float64(i)
	}
	closes[97] = 95.5
	closes[98] = 94.5
	closes[99] = 97.8
	bars := barsFrom(closes, 0.3)
	bars[99].High = 98.1
	bars[99].Low = 93.8

	zones := []models.Zone{
		{Level: 94, Upper: 94.5, Lower: 93.5, Type: models.ZoneSupport, ATR: 1},
	}

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: bars, Zones: zones})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup == nil {
		t.Fatal("expected a strict pullback setup")
	}
	if setup.Type != models.SetupPullback {
		t.Errorf("type = %s, want PULLBACK", setup.Type)
	}
	if setup.Relaxed {
		t.Error("strict path must not be flagged relaxed")
	}
	if setup.SupportLevel != 94 {
		t.Errorf("support level = %v, want 94", setup.SupportLevel)
	}
	if setup.CCIYesterday >= -100 {
		t.Errorf("CCI yesterday = %v, want < -100", setup.CCIYesterday)
	}
	if setup.CCIToday <= setup.CCIYesterday {
		t.Errorf("CCI today %v did not hook up from %v", setup.CCIToday, setup.CCIYesterday)
	}

	riskAmt := setup.Entry - setup.StopLoss
	if riskAmt <= 0 || riskAmt > 0.15*setup.Entry {
		t.Errorf("risk %v outside (0, 15%% of entry]", riskAmt)
	}
	if math.Abs((setup.TakeProfit-setup.Entry)-2*riskAmt) > 1e-9 {
		t.Errorf("take profit %v is not entry + 2x risk", setup.TakeProfit)
	}
}

// Relaxed path: a shallow two-day dip that never reaches oversold, the
// close settling back onto the 8-EMA on ordinary volume, with no zones
// so the stop falls back to the 50-day SMA.
func TestRelaxedPullback(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 90 + 0.1*float64(i)
	}
	closes[97] = 98.4
	closes[98] = 98.2
	closes[99] = 98.9
	bars := barsFrom(closes, 0.3)
	bars[99].High = 99.1
	bars[99].Low = 98.6

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: bars})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup == nil {
		t.Fatal("expected a relaxed pullback setup")
	}
	if !setup.Relaxed {
		t.Error("expected the relaxed flag")
	}
	// No support zones: the stop reference is the 50-day SMA, which the
	// SupportLevel metadata reports.
	if setup.SupportLevel >= 98.9 || setup.SupportLevel < 90 {
		t.Errorf("support level = %v, want the SMA50 below the close", setup.SupportLevel)
	}
	if setup.CCIYesterday >= 0 {
		t.Errorf("CCI yesterday = %v, want negative", setup.CCIYesterday)
	}
}

func TestTrendFilterRejectsDowntrend(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: barsFrom(closes, 0.3)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup != nil {
		t.Errorf("downtrend must not produce a pullback, got %+v", setup)
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	engine := NewEngine(DefaultConfig())
	if _, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: barsFrom(closes, 0.3)}); err == nil {
		t.Error("expected an insufficient-data error for 30 bars")
	}
}

// The strict path must not fire when the day's low stays inside the
// band but the close never recovers the 20-EMA.
func TestStrictRequiresCloseAboveEMA20(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 80 + 0.2*float64(i)
	}
	closes[97] = 95.5
	closes[98] = 94.5
	closes[99] = 94.2 // stays below the 20-EMA
	bars := barsFrom(closes, 0.3)
	bars[99].Low = 93.8

	zones := []models.Zone{
		{Level: 94, Upper: 94.5, Lower: 93.5, Type: models.ZoneSupport, ATR: 1},
	}

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: bars, Zones: zones})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup != nil && !setup.Relaxed {
		t.Errorf("close below the 20-EMA must not pass the strict path, got %+v", setup)
	}
}

// A low landing exactly on an EMA is a pierce, not a miss. The boundary
// matters on quiet days where the shakeout stops dead on the average.
func TestStrictAcceptsLowOnEMA(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snap := &snapshot{
		high:         97,
		low:          95,
		close:        96.5,
		ema8:         95, // low == ema8
		ema20:        96,
		atr14:        1,
		cciToday:     -60,
		cciYesterday: -150,
		support: []models.Zone{
			{Level: 95, Upper: 95.5, Lower: 94.5, Type: models.ZoneSupport, ATR: 1},
		},
	}

	setup := engine.strict(snap)
	if setup == nil {
		t.Fatal("a low exactly on the 8-EMA must count as a pierce")
	}
	if setup.SupportLevel != 95 {
		t.Errorf("support level = %v, want 95", setup.SupportLevel)
	}

	// Nudge the low above both EMAs: no pierce, no setup.
	snap.ema8, snap.ema20 = 96, 95
	snap.low = 96.01
	if s := engine.strict(snap); s != nil {
		t.Errorf("a low above both EMAs must not pass the strict path, got %+v", s)
	}
}

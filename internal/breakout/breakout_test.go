package breakout

import (
	"math"
	"testing"
	"time"

	"swing-scanner/internal/models"
)

func makeBars(closes, volumes []float64, spread float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:     base.AddDate(0, 0, i),
			Open:     c,
			High:     c + spread/2,
			Low:      c - spread/2,
			Close:    c,
			AdjClose: c,
			Volume:   volumes[i],
		}
	}
	return bars
}

// coiledBreakoutSeries qualifies for both the confirmed-breakout and
// coiled-spring paths at once: a long shelf, an advance, then a tight
// U-shaped drift capped by a heavy-volume push through resistance.
func coiledBreakoutSeries() ([]models.PriceBar, []models.Zone) {
	n := 100
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		volumes[i] = 1e6
		switch {
		case i < 60:
			closes[i] = 90
		case i < 85:
			closes[i] = 90 + float64(i-59)*0.36 // drift up to ~99
		default:
			// U-shaped coil over the last 15 bars, vertex mid-window.
			x := float64(i - 85) // 0..14
			closes[i] = 99 - 2 + 2.0/49.0*(x-7)*(x-7)
		}
	}
	closes[n-1] = 100.4 // clears the 99-zone upper (99.5) by 0.9%
	volumes[n-1] = 2e6  // volume ratio near 2x

	bars := makeBars(closes, volumes, 2.0)
	// Shrink the true range of the last 5 bars for the contraction.
	for i := n - 5; i < n; i++ {
		bars[i].High = bars[i].AdjClose + 0.25
		bars[i].Low = bars[i].AdjClose - 0.25
	}

	zones := []models.Zone{
		{Level: 99, Upper: 99.5, Lower: 98.5, Type: models.ZoneResistance, ATR: 1},
		{Level: 103, Upper: 103.5, Lower: 102.5, Type: models.ZoneResistance, ATR: 1},
	}
	return bars, zones
}

func TestConfirmedBeatsCoiledSpring(t *testing.T) {
	bars, zones := coiledBreakoutSeries()

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{
		Ticker:        "TEST",
		Bars:          bars,
		Zones:         zones,
		BenchReturn3M: 0, // the stock's trailing return is positive
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup == nil {
		t.Fatal("expected a setup")
	}
	if setup.Path != models.PathConfirmed {
		t.Fatalf("path = %s, want %s (priority order)", setup.Path, models.PathConfirmed)
	}
	if setup.Type != models.SetupBreakout {
		t.Errorf("type = %s, want BREAKOUT", setup.Type)
	}
	if setup.VolumeRatio < 1.5 {
		t.Errorf("volume ratio = %v, want >= 1.5", setup.VolumeRatio)
	}
}

func TestCoiledSpringWhenEarlierPathsBlocked(t *testing.T) {
	bars, zones := coiledBreakoutSeries()

	engine := NewEngine(DefaultConfig())
	// A huge benchmark return turns the relative-performance diff
	// negative, blocking the confirmed and level paths; no RS line
	// blocks the RS-led path; rising highs rule out a trendline.
	setup, err := engine.Evaluate(Inputs{
		Ticker:        "TEST",
		Bars:          bars,
		Zones:         zones,
		BenchReturn3M: 10.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup == nil {
		t.Fatal("expected the coiled-spring path to fire")
	}
	if setup.Path != models.PathCoiledSpring {
		t.Fatalf("path = %s, want %s", setup.Path, models.PathCoiledSpring)
	}
	if setup.TRContraction >= 1 {
		t.Errorf("contraction ratio = %v, want < 1", setup.TRContraction)
	}
}

func TestRiskMathOnEmittedSetup(t *testing.T) {
	bars, zones := coiledBreakoutSeries()

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: bars, Zones: zones})
	if err != nil || setup == nil {
		t.Fatalf("Evaluate: %v, setup %v", err, setup)
	}

	riskAmt := setup.Entry - setup.StopLoss
	if riskAmt <= 0 || riskAmt > 0.15*setup.Entry {
		t.Errorf("risk %v outside (0, 15%% of entry]", riskAmt)
	}
	if math.Abs((setup.TakeProfit-setup.Entry)-2*riskAmt) > 1e-9 {
		t.Errorf("take profit %v is not entry + 2x risk", setup.TakeProfit)
	}
}

func TestPreFilterRejectsDowntrend(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 200 - float64(i) // falling: close under SMA50
		volumes[i] = 1e6
	}
	bars := makeBars(closes, volumes, 2.0)

	engine := NewEngine(DefaultConfig())
	setup, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: bars})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if setup != nil {
		t.Errorf("downtrend must not produce a breakout, got %+v", setup)
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	closes := []float64{100, 101, 102}
	volumes := []float64{1e6, 1e6, 1e6}
	engine := NewEngine(DefaultConfig())
	if _, err := engine.Evaluate(Inputs{Ticker: "TEST", Bars: makeBars(closes, volumes, 1)}); err == nil {
		t.Error("expected an insufficient-data error for 3 bars")
	}
}

func TestNearBreakoutWatchlist(t *testing.T) {
	n := 100
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		volumes[i] = 1e6
		if i < 60 {
			closes[i] = 90
		} else {
			closes[i] = 90 + float64(i-59)*0.2
		}
	}
	closes[n-1] = 99.0 // 1.01% below the zone upper of 100
	bars := makeBars(closes, volumes, 1.0)

	zones := []models.Zone{
		{Level: 99.5, Upper: 100, Lower: 99, Type: models.ZoneResistance, ATR: 0.5},
	}

	engine := NewEngine(DefaultConfig())
	watch := engine.NearBreakout(Inputs{Ticker: "TEST", Bars: bars, Zones: zones})
	if watch == nil {
		t.Fatal("expected a watchlist record")
	}
	if watch.Type != models.SetupWatchlist {
		t.Errorf("type = %s, want WATCHLIST", watch.Type)
	}
	if watch.WatchLevel != models.WatchZone {
		t.Errorf("watch level = %s, want ZONE", watch.WatchLevel)
	}
	if watch.Entry != 0 || watch.StopLoss != 0 {
		t.Errorf("watchlist records carry no risk math, got entry %v stop %v", watch.Entry, watch.StopLoss)
	}
	if math.Abs(watch.DistancePct-1.0101) > 0.01 {
		t.Errorf("distance = %v%%, want about 1.01%%", watch.DistancePct)
	}
}

func TestFitTrendlineDescending(t *testing.T) {
	n := 80
	highs := make([]float64, n)
	for i := range highs {
		highs[i] = 100 - float64(i)*0.2 // descending base line
	}
	// Two swing highs touching a steeper descending line.
	highs[10] = 110 - float64(10)*0.25
	highs[50] = 110 - float64(50)*0.25

	line, ok := FitTrendline(highs)
	if !ok {
		t.Fatal("expected a trendline fit")
	}
	if line.Slope >= 0 {
		t.Errorf("slope = %v, want negative", line.Slope)
	}
	if line.Touches < 2 {
		t.Errorf("touches = %d, want >= 2", line.Touches)
	}
	want := 110 - float64(10)*0.25 + line.Slope*float64(n-1-10)
	if math.Abs(line.Today()-want) > 1e-9 {
		t.Errorf("Today = %v, want %v", line.Today(), want)
	}
}

func TestFitTrendlineRejectsRisingHighs(t *testing.T) {
	n := 80
	highs := make([]float64, n)
	for i := range highs {
		highs[i] = 100 + float64(i)*0.3
	}
	highs[20] += 5
	highs[60] += 8 // later peak higher: any two-peak line slopes up

	if _, ok := FitTrendline(highs); ok {
		t.Error("rising swing highs must not fit a descending trendline")
	}
}

package zones

import (
	"math"
	"testing"
	"time"

	"swing-scanner/internal/models"
)

func makeBars(closes []float64, spread float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
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

// twoLevelSeries oscillates around 100 for its first half and around
// 120 for its second, so the price cloud has two dense clusters.
func twoLevelSeries(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		level := 100.0
		if i >= n/2 {
			level = 120.0
		}
		closes[i] = level + 2*math.Sin(float64(i)/3)
	}
	return closes
}

func TestExtractZoneInvariants(t *testing.T) {
	bars := makeBars(twoLevelSeries(300), 1.0)
	zs := NewExtractor(DefaultConfig()).Extract(bars)
	if len(zs) == 0 {
		t.Fatal("expected zones from a two-level series")
	}

	lastClose := bars[len(bars)-1].AdjClose
	prev := math.Inf(-1)
	for i, z := range zs {
		if !(z.Lower < z.Level && z.Level < z.Upper) {
			t.Errorf("zone %d violates lower < level < upper: %+v", i, z)
		}
		if z.Level <= prev {
			t.Errorf("zones not sorted ascending at %d: %v after %v", i, z.Level, prev)
		}
		prev = z.Level

		if z.Level > lastClose && z.Type != models.ZoneResistance {
			t.Errorf("zone %d above close should be resistance: %+v", i, z)
		}
		if z.Level <= lastClose && z.Type != models.ZoneSupport {
			t.Errorf("zone %d at/below close should be support: %+v", i, z)
		}
	}
}

func TestExtractSeparatedLevels(t *testing.T) {
	bars := makeBars(twoLevelSeries(300), 1.0)
	zs := NewExtractor(DefaultConfig()).Extract(bars)

	// Merged levels must stay more than one ATR apart.
	for i := 1; i < len(zs); i++ {
		if zs[i].Level-zs[i-1].Level < zs[i].ATR {
			t.Errorf("levels %v and %v closer than one ATR (%v)",
				zs[i-1].Level, zs[i].Level, zs[i].ATR)
		}
	}
}

func TestExtractFlatSeries(t *testing.T) {
	// A perfectly flat, noiseless tape: zero true range, zero ATR.
	flat := make([]float64, 300)
	for i := range flat {
		flat[i] = 100
	}
	zs := NewExtractor(DefaultConfig()).Extract(makeBars(flat, 0))
	if len(zs) != 0 {
		t.Errorf("flat noiseless series should yield no zones, got %d", len(zs))
	}
}

func TestExtractFlatCloseWithRange(t *testing.T) {
	// Constant closes but a real intraday range: ATR is positive, yet
	// the price cloud has no variance for the density estimate.
	flat := make([]float64, 300)
	for i := range flat {
		flat[i] = 100
	}
	zs := NewExtractor(DefaultConfig()).Extract(makeBars(flat, 1.0))
	if len(zs) > 1 {
		t.Errorf("flat series should yield at most one zone, got %d", len(zs))
	}
}

func TestExtractShortHistory(t *testing.T) {
	bars := makeBars(twoLevelSeries(30), 1.0)
	if zs := NewExtractor(DefaultConfig()).Extract(bars); len(zs) != 0 {
		t.Errorf("expected no zones for %d bars, got %d", len(bars), len(zs))
	}
}

func TestMergeLevels(t *testing.T) {
	merged := mergeLevels([]float64{100, 100.5, 101, 110}, 2.0)
	if len(merged) != 2 {
		t.Fatalf("mergeLevels = %v, want 2 clusters", merged)
	}
	if math.Abs(merged[0]-100.5) > 1e-9 {
		t.Errorf("first cluster = %v, want 100.5", merged[0])
	}
	if math.Abs(merged[1]-110) > 1e-9 {
		t.Errorf("second cluster = %v, want 110", merged[1])
	}
}

package scanner

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/marketdata"
	"swing-scanner/internal/models"
	"swing-scanner/internal/universe"
)

func seriesBars(n int, closeAt func(i int) float64, volumeAt func(i int) float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := closeAt(i)
		bars[i] = models.PriceBar{
			Date:     base.AddDate(0, 0, i),
			Open:     c,
			High:     c + 0.2,
			Low:      c - 0.2,
			Close:    c,
			AdjClose: c,
			Volume:   volumeAt(i),
		}
	}
	return bars
}

func risingBenchmark(n int) []models.PriceBar {
	return seriesBars(n, func(i int) float64 { return 100 + 0.02*float64(i) }, func(int) float64 { return 1e6 })
}

// cupStock rebuilds the cup-and-handle series the base-pattern engine
// detects, so a full scan can surface at least one BASE setup without
// depending on zone extraction.
func cupStock() []models.PriceBar {
	bars := seriesBars(261, func(i int) float64 {
		switch {
		case i < 199:
			return 50 + 0.25*float64(i)
		case i <= 239:
			return 90 + 10*math.Cos(math.Pi*float64(i-199)/20)
		case i < 260:
			return 92 + 0.05*float64(i-240)
		default:
			return 101
		}
	}, func(i int) float64 {
		switch {
		case i < 240:
			return 1e6
		case i < 260:
			return 0.5e6
		default:
			return 1.3e6
		}
	})
	bars[260].High = 101.5
	bars[260].Low = 100.2
	return bars
}

func TestRunFindsBaseSetup(t *testing.T) {
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY":  risingBenchmark(300),
		"CUPS": cupStock(),
	})
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"CUPS"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ScanID == "" {
		t.Error("scan ID missing")
	}
	if !res.Regime.IsBullish {
		t.Fatalf("regime = %q, want bullish", res.Regime.Label)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(res.Outcomes))
	}
	o := res.Outcomes[0]
	if o.Reason != ReasonSetups {
		t.Fatalf("reason = %s, want SETUPS", o.Reason)
	}
	var base *models.Setup
	for i := range o.Setups {
		if o.Setups[i].Type == models.SetupBase {
			base = &o.Setups[i]
		}
	}
	if base == nil {
		t.Fatalf("no BASE setup among %d setups", len(o.Setups))
	}
	if base.BaseType != models.BaseCupHandle {
		t.Errorf("base type = %s, want CUP_HANDLE", base.BaseType)
	}
	if len(res.Setups) != len(o.Setups) {
		t.Errorf("flattened setups = %d, want %d", len(res.Setups), len(o.Setups))
	}
}

func TestRunNoSignal(t *testing.T) {
	// A slow fader: trend filters in every engine reject it.
	fading := seriesBars(300, func(i int) float64 { return 110 - 0.02*float64(i) }, func(int) float64 { return 1e6 })
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY": risingBenchmark(300),
		"MEH": fading,
	})
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"MEH"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Reason != ReasonNoSignal {
		t.Fatalf("outcomes = %+v, want one NO_SIGNAL", res.Outcomes)
	}
	if len(res.Setups) != 0 {
		t.Errorf("setups = %d, want 0", len(res.Setups))
	}
}

func TestRunBearishRegimeSkipsEverything(t *testing.T) {
	falling := seriesBars(300, func(i int) float64 { return 200 - 0.3*float64(i) }, func(int) float64 { return 1e6 })
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY":  falling,
		"CUPS": cupStock(),
	})
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"CUPS"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Regime.IsBullish {
		t.Fatal("falling benchmark must not read bullish")
	}
	if len(res.Outcomes) != 0 || len(res.Setups) != 0 {
		t.Errorf("bearish regime must skip all ticker work, got %d outcomes %d setups",
			len(res.Outcomes), len(res.Setups))
	}
}

func TestRunInsufficientData(t *testing.T) {
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY": risingBenchmark(300),
		// "GHST" absent: the provider returns an empty series.
	})
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"GHST"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Reason != ReasonInsufficientData {
		t.Fatalf("outcomes = %+v, want one INSUFFICIENT_DATA", res.Outcomes)
	}
}

// failingProvider errors for the listed symbols and delegates the rest.
type failingProvider struct {
	next marketdata.Provider
	fail map[string]bool
}

func (p *failingProvider) DailyBars(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	if p.fail[symbol] {
		return nil, errors.New("connection reset")
	}
	return p.next.DailyBars(ctx, symbol)
}

func TestRunFetchFailed(t *testing.T) {
	provider := &failingProvider{
		next: marketdata.NewStatic(map[string][]models.PriceBar{
			"SPY": risingBenchmark(300),
		}),
		fail: map[string]bool{"BRKN": true},
	}
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"BRKN"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Reason != ReasonFetchFailed {
		t.Fatalf("outcomes = %+v, want one FETCH_FAILED", res.Outcomes)
	}
	if res.Outcomes[0].Err == nil {
		t.Error("fetch failure must carry its error")
	}
}

func TestRunBenchmarkFetchError(t *testing.T) {
	provider := &failingProvider{
		next: marketdata.NewStatic(nil),
		fail: map[string]bool{"SPY": true},
	}
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"CUPS"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(res.Regime.Label, "ERROR:") {
		t.Errorf("regime label = %q, want ERROR prefix", res.Regime.Label)
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("a failed benchmark fetch must skip all ticker work, got %d outcomes", len(res.Outcomes))
	}
}

func TestRunHonorsMaxTickers(t *testing.T) {
	fading := seriesBars(300, func(i int) float64 { return 110 - 0.02*float64(i) }, func(int) float64 { return 1e6 })
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY": risingBenchmark(300),
		"AAA": fading, "BBB": fading, "CCC": fading,
	})
	cfg := DefaultConfig()
	cfg.MaxTickers = 2
	s := New(cfg, provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"AAA", "BBB", "CCC"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outcomes) != 2 {
		t.Errorf("outcomes = %d, want the 2-ticker cap honored", len(res.Outcomes))
	}
}

// A strictly rising, low-volatility tape on constant volume gives every
// engine nothing to work with: volume never ranks above average, ranges
// never contract, the CCI never leaves positive ground, and no
// resistance sits overhead.
func TestRunRisingQuietSeries(t *testing.T) {
	rising := seriesBars(300, func(i int) float64 { return 50 + 0.3*float64(i) }, func(int) float64 { return 1e6 })
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY": risingBenchmark(300),
		"UPP": rising,
	})
	s := New(DefaultConfig(), provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"UPP"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Regime.IsBullish {
		t.Fatalf("regime = %q, want bullish", res.Regime.Label)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(res.Outcomes))
	}
	o := res.Outcomes[0]
	for _, su := range o.Setups {
		if su.Type == models.SetupBreakout || su.Type == models.SetupPullback || su.Type == models.SetupBase {
			t.Errorf("quiet uptrend produced a %s setup: %+v", su.Type, su)
		}
	}
	if o.Reason != ReasonNoSignal {
		t.Errorf("reason = %s, want NO_SIGNAL", o.Reason)
	}
	if len(res.Setups) != 0 {
		t.Errorf("setups = %d, want 0", len(res.Setups))
	}
}

// An engine refusing its inputs must surface in the outcome instead of
// reading as a quiet ticker. A raised CCI period makes the pullback
// engine demand more history than the fetch gate does.
func TestRunSurfacesEngineError(t *testing.T) {
	fading := seriesBars(80, func(i int) float64 { return 110 - 0.2*float64(i) }, func(int) float64 { return 1e6 })
	provider := marketdata.NewStatic(map[string][]models.PriceBar{
		"SPY":  risingBenchmark(300),
		"SHRT": fading,
	})
	cfg := DefaultConfig()
	cfg.Pullback.CCIPeriod = 100 // needs 101 bars; only 80 exist
	s := New(cfg, provider, zerolog.Nop())

	res, err := s.Run(context.Background(), universe.FromSymbols([]string{"SHRT"}, "SPY"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(res.Outcomes))
	}
	o := res.Outcomes[0]
	if o.Reason != ReasonInsufficientData {
		t.Fatalf("reason = %s, want INSUFFICIENT_DATA", o.Reason)
	}
	if o.Err == nil {
		t.Fatal("engine failure must carry its error")
	}
	if !errors.Is(o.Err, scanerrors.ErrInsufficientData) {
		t.Errorf("err = %v, want an insufficient-data chain", o.Err)
	}
	var se *scanerrors.ScanError
	if !errors.As(o.Err, &se) || se.Stage != "pullback" {
		t.Errorf("err = %v, want a scan error naming the pullback stage", o.Err)
	}
}

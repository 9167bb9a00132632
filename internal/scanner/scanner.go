// Package scanner orchestrates a full scan: regime gate, then a
// bounded worker pool running the per-ticker pipeline (zones and RS
// concurrently, then the three pattern engines). Every ticker's
// failure is isolated into its own outcome; nothing aborts the batch.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"swing-scanner/internal/basepattern"
	"swing-scanner/internal/breakout"
	scanerrors "swing-scanner/internal/errors"
	"swing-scanner/internal/indicators"
	"swing-scanner/internal/logging"
	"swing-scanner/internal/marketdata"
	"swing-scanner/internal/models"
	"swing-scanner/internal/pullback"
	"swing-scanner/internal/regime"
	"swing-scanner/internal/rsline"
	"swing-scanner/internal/universe"
	"swing-scanner/internal/zones"
)

// Reason tags a per-ticker outcome so "nothing found" stays
// distinguishable from "something broke".
type Reason string

const (
	ReasonSetups           Reason = "SETUPS"
	ReasonNoSignal         Reason = "NO_SIGNAL"
	ReasonInsufficientData Reason = "INSUFFICIENT_DATA"
	ReasonFetchFailed      Reason = "FETCH_FAILED"
	ReasonComputeError     Reason = "COMPUTE_ERROR"
)

// Outcome is the result of one ticker's pipeline.
type Outcome struct {
	Ticker string
	Reason Reason
	Setups []models.Setup
	Zones  []models.Zone
	Err    error
}

// Result is a complete scan.
type Result struct {
	ScanID     string
	Benchmark  string
	Regime     models.Regime
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	Setups     []models.Setup
}

// Config sizes a scan and carries the per-engine tunables. Zero-value
// engine configs fall back to each engine's defaults.
type Config struct {
	Concurrency int // simultaneous ticker pipelines
	MaxTickers  int // 0 means no cap
	ReturnDays  int // benchmark relative-performance lookback

	Zones    zones.Config
	Breakout breakout.Config
	Pullback pullback.Config
	Base     basepattern.Config
}

// DefaultConfig returns the standard scan sizing. Concurrency is tuned
// to stay under the market-data provider's rate limits.
func DefaultConfig() Config {
	return Config{Concurrency: 15, ReturnDays: 63}
}

// Scanner runs batch scans.
type Scanner struct {
	cfg       Config
	provider  marketdata.Provider
	extractor *zones.Extractor
	breakout  *breakout.Engine
	pullback  *pullback.Engine
	base      *basepattern.Engine
	logger    zerolog.Logger
}

// New wires a Scanner from its collaborators. A zero-value Config is
// replaced by the defaults.
func New(cfg Config, provider marketdata.Provider, logger zerolog.Logger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.ReturnDays <= 0 {
		cfg.ReturnDays = DefaultConfig().ReturnDays
	}
	return &Scanner{
		cfg:       cfg,
		provider:  provider,
		extractor: zones.NewExtractor(cfg.Zones),
		breakout:  breakout.NewEngine(cfg.Breakout),
		pullback:  pullback.NewEngine(cfg.Pullback),
		base:      basepattern.NewEngine(cfg.Base),
		logger:    logger,
	}
}

// Run executes one scan over the universe. The regime gate fails
// closed: a bearish or unknowable regime returns immediately with no
// per-ticker work.
func (s *Scanner) Run(ctx context.Context, u *universe.Universe) (*Result, error) {
	res := &Result{
		ScanID:    uuid.NewString(),
		Benchmark: u.Benchmark,
		StartedAt: time.Now(),
	}
	log := logging.WithScan(s.logger, res.ScanID)

	benchBars, err := s.provider.DailyBars(ctx, u.Benchmark)
	if err != nil {
		log.Error().Err(err).Str("benchmark", u.Benchmark).Msg("benchmark fetch failed")
		res.Regime = models.Regime{Label: fmt.Sprintf("ERROR: benchmark fetch: %v", err)}
		res.FinishedAt = time.Now()
		return res, nil
	}
	res.Regime = regime.Evaluate(benchBars)
	log.Info().
		Str("regime", res.Regime.Label).
		Float64("close", res.Regime.Close).
		Float64("ema20", res.Regime.EMA20).
		Msg("regime evaluated")

	if !res.Regime.IsBullish {
		res.FinishedAt = time.Now()
		return res, nil
	}

	benchReturn := indicators.ReturnOver(indicators.AdjCloses(benchBars), s.cfg.ReturnDays)

	tickers := u.Tickers
	if s.cfg.MaxTickers > 0 && len(tickers) > s.cfg.MaxTickers {
		tickers = tickers[:s.cfg.MaxTickers]
	}

	symbolC := make(chan universe.Ticker)
	outcomeC := make(chan Outcome, len(tickers))

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range symbolC {
				outcomeC <- s.scanTicker(ctx, log, t, benchBars, benchReturn)
			}
		}()
	}
	for _, t := range tickers {
		symbolC <- t
	}
	close(symbolC)
	wg.Wait()
	close(outcomeC)

	for o := range outcomeC {
		res.Outcomes = append(res.Outcomes, o)
		res.Setups = append(res.Setups, o.Setups...)
	}
	res.FinishedAt = time.Now()
	log.Info().
		Int("tickers", len(tickers)).
		Int("setups", len(res.Setups)).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("scan complete")
	return res, nil
}

// scanTicker runs the full per-ticker pipeline. Panics from any engine
// are converted into a compute-error outcome so one bad series cannot
// take the batch down.
func (s *Scanner) scanTicker(ctx context.Context, log zerolog.Logger, t universe.Ticker, benchBars []models.PriceBar, benchReturn float64) (out Outcome) {
	out.Ticker = t.Symbol
	slog := logging.WithSymbol(log, t.Symbol)
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Ticker: t.Symbol,
				Reason: ReasonComputeError,
				Err:    fmt.Errorf("panic: %v", r),
			}
			slog.Error().Interface("panic", r).Msg("ticker pipeline panicked")
		}
	}()

	bars, err := s.provider.DailyBars(ctx, t.Symbol)
	if err != nil {
		slog.Warn().Err(err).Msg("fetch failed, skipping")
		out.Reason = ReasonFetchFailed
		out.Err = err
		return out
	}
	if len(bars) < 60 {
		out.Reason = ReasonInsufficientData
		return out
	}

	// Zones and the RS line have no dependency on each other.
	var (
		zs    []models.Zone
		rs    *rsline.Line
		inner sync.WaitGroup
	)
	inner.Add(2)
	go func() {
		defer inner.Done()
		zs = s.extractor.Extract(bars)
	}()
	go func() {
		defer inner.Done()
		rs, _ = rsline.Build(bars, benchBars) // unavailable RS is not an error
	}()
	inner.Wait()
	out.Zones = zs

	rsCtx := basepattern.RSContext{
		ReturnDiff3M: indicators.ReturnOver(indicators.AdjCloses(bars), s.cfg.ReturnDays) - benchReturn,
	}
	if rs != nil {
		rsCtx.BlueDot = rs.BlueDot()
	}

	brkIn := breakout.Inputs{
		Ticker: t.Symbol, Sector: t.Sector,
		Bars: bars, Zones: zs, RS: rs, BenchReturn3M: benchReturn,
	}
	brk, err := s.breakout.Evaluate(brkIn)
	if err != nil {
		return s.engineFailure(slog, out, "breakout", err)
	}
	if brk != nil {
		out.Setups = append(out.Setups, *brk)
	} else if w := s.breakout.NearBreakout(brkIn); w != nil {
		out.Setups = append(out.Setups, *w)
	}

	pb, err := s.pullback.Evaluate(pullback.Inputs{
		Ticker: t.Symbol, Sector: t.Sector, Bars: bars, Zones: zs,
	})
	if err != nil {
		return s.engineFailure(slog, out, "pullback", err)
	}
	if pb != nil {
		out.Setups = append(out.Setups, *pb)
	}

	base, err := s.base.Evaluate(basepattern.Inputs{
		Ticker: t.Symbol, Sector: t.Sector, Bars: bars, RS: rsCtx,
	})
	if err != nil {
		return s.engineFailure(slog, out, "base", err)
	}
	if base != nil {
		out.Setups = append(out.Setups, *base)
	}

	if len(out.Setups) > 0 {
		out.Reason = ReasonSetups
		slog.Info().Int("setups", len(out.Setups)).Msg("setups found")
	} else {
		out.Reason = ReasonNoSignal
	}
	return out
}

// engineFailure tags an outcome with the failing stage so a broken
// computation never reads as a quiet ticker.
func (s *Scanner) engineFailure(log zerolog.Logger, out Outcome, stage string, err error) Outcome {
	out.Err = scanerrors.NewScanError(out.Ticker, stage, err)
	if scanerrors.Is(err, scanerrors.ErrInsufficientData) {
		out.Reason = ReasonInsufficientData
	} else {
		out.Reason = ReasonComputeError
	}
	log.Warn().Err(err).Str("stage", stage).Msg("engine failed")
	return out
}

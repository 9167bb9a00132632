package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"swing-scanner/internal/basepattern"
	"swing-scanner/internal/breakout"
	"swing-scanner/internal/models"
	"swing-scanner/internal/pullback"
	"swing-scanner/internal/regime"
	"swing-scanner/internal/scanner"
	"swing-scanner/internal/universe"
)

func newScanCmd(app *App) *cobra.Command {
	var (
		symbols     string
		benchmark   string
		concurrency int
		maxTickers  int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a full scan over the ticker universe",
		Long: `Runs the complete pipeline: benchmark regime check, then zone mapping,
relative strength, and the three pattern engines for every ticker.
Results are printed and, when the database is available, persisted
under a fresh scan identifier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			u, err := resolveUniverse(app, symbols, benchmark)
			if err != nil {
				return err
			}

			cfg := scanner.DefaultConfig()
			cfg.Concurrency = app.Config.Scan.Concurrency
			cfg.MaxTickers = app.Config.Scan.MaxTickers
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}
			if maxTickers > 0 {
				cfg.MaxTickers = maxTickers
			}
			applyTuning(&cfg, app)

			s := scanner.New(cfg, app.Provider, app.Logger)
			res, err := s.Run(cmd.Context(), u)
			if err != nil {
				return err
			}

			if app.Store != nil {
				if err := app.Store.SaveScan(cmd.Context(), res); err != nil {
					app.Logger.Error().Err(err).Msg("failed to persist scan")
					output.Warn("scan not persisted: %v", err)
				}
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			renderScan(output, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbols, "symbols", "", "comma-separated symbols (bypasses the universe file)")
	cmd.Flags().StringVar(&benchmark, "benchmark", "", "benchmark symbol (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel ticker pipelines")
	cmd.Flags().IntVar(&maxTickers, "max", 0, "cap the number of tickers scanned")
	return cmd
}

func resolveUniverse(app *App, symbols, benchmark string) (*universe.Universe, error) {
	if benchmark == "" {
		benchmark = app.Config.Scan.Benchmark
	}
	if symbols != "" {
		return universe.FromSymbols(strings.Split(symbols, ","), benchmark), nil
	}
	return universe.Load(app.Config.Scan.UniverseFile, benchmark)
}

// applyTuning maps config-file overrides onto the engine defaults.
func applyTuning(cfg *scanner.Config, app *App) {
	t := app.Config.Tuning

	cfg.Breakout = breakout.DefaultConfig()
	if t.RSLeadMaxBelow > 0 {
		cfg.Breakout.RSLeadMaxBelow = t.RSLeadMaxBelow
	}
	if t.WatchlistMaxBelow > 0 {
		cfg.Breakout.WatchMaxBelow = t.WatchlistMaxBelow
	}

	cfg.Pullback = pullback.DefaultConfig()
	if t.PullbackEMARange > 0 {
		cfg.Pullback.EMAProximity = t.PullbackEMARange
	}

	cfg.Base = basepattern.DefaultConfig()
	if t.FlatBaseMaxDepth > 0 {
		cfg.Base.FlatMaxDepth = t.FlatBaseMaxDepth
	}
	if t.DryProximity > 0 {
		cfg.Base.DryProximity = t.DryProximity
	}
	if t.CupVolumeDryMax > 0 {
		cfg.Base.CupVolDryMax = t.CupVolumeDryMax
	}
	if t.MinQualityScore > 0 {
		cfg.Base.MinQuality = t.MinQualityScore
	}
}

func renderScan(o *Output, res *scanner.Result) {
	o.Header("Scan %s", res.ScanID)
	o.Printf("Benchmark: %s   Regime: %s\n", res.Benchmark, res.Regime.Label)
	if !res.Regime.IsBullish {
		o.Warn("Regime is not bullish; pattern engines were skipped.")
		return
	}

	var fetchFailed, noSignal int
	for _, out := range res.Outcomes {
		switch out.Reason {
		case scanner.ReasonFetchFailed, scanner.ReasonInsufficientData:
			fetchFailed++
		case scanner.ReasonNoSignal:
			noSignal++
		}
	}
	o.Printf("Tickers: %d   Setups: %d   Quiet: %d   Skipped: %d   Elapsed: %s\n\n",
		len(res.Outcomes), len(res.Setups), noSignal, fetchFailed,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Second))

	if len(res.Setups) == 0 {
		o.Dim("No setups today.")
		return
	}
	for _, s := range res.Setups {
		o.Println(formatSetup(s))
	}
}

func formatSetup(s models.Setup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-9s", s.Ticker, s.Type)
	switch s.Type {
	case models.SetupBreakout:
		fmt.Fprintf(&b, " %-13s vol %.1fx", s.Path, s.VolumeRatio)
	case models.SetupPullback:
		mode := "strict"
		if s.Relaxed {
			mode = "relaxed"
		}
		fmt.Fprintf(&b, " %-13s cci %.0f>%.0f", mode, s.CCIToday, s.CCIYesterday)
	case models.SetupBase:
		fmt.Fprintf(&b, " %-13s %s q%d depth %.1f%%", s.BaseType, s.Signal, s.QualityScore, s.BaseDepthPct)
	case models.SetupWatchlist:
		fmt.Fprintf(&b, " near %-8s %.2f (%.1f%% away)", s.WatchLevel, s.WatchPrice, s.DistancePct)
		return b.String()
	}
	fmt.Fprintf(&b, "  entry %.2f stop %.2f target %.2f", s.Entry, s.StopLoss, s.TakeProfit)
	if s.Sector != "" {
		fmt.Fprintf(&b, "  [%s]", s.Sector)
	}
	return b.String()
}

func newRegimeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "regime",
		Short: "Show the current benchmark regime",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			bench := app.Config.Scan.Benchmark

			bars, err := app.Provider.DailyBars(cmd.Context(), bench)
			var r models.Regime
			if err != nil {
				r = models.Regime{Label: fmt.Sprintf("ERROR: benchmark fetch: %v", err)}
			} else {
				r = regime.Evaluate(bars)
			}

			if output.IsJSON() {
				return output.JSON(r)
			}
			if r.IsBullish {
				output.Success("%s: %s (close %.2f vs EMA20 %.2f)", bench, r.Label, r.Close, r.EMA20)
			} else {
				output.Warn("%s: %s (close %.2f vs EMA20 %.2f)", bench, r.Label, r.Close, r.EMA20)
			}
			return nil
		},
	}
}

func newSetupsCmd(app *App) *cobra.Command {
	var scanID string
	cmd := &cobra.Command{
		Use:   "setups",
		Short: "List setups from the latest (or a given) scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("scan database unavailable")
			}

			id, err := resolveScanID(cmd.Context(), app, scanID)
			if err != nil {
				return err
			}
			setups, err := app.Store.SetupsForScan(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(setups)
			}
			if len(setups) == 0 {
				output.Dim("No setups in scan %s.", id)
				return nil
			}
			output.Header("Setups from scan %s", id)
			for _, s := range setups {
				output.Println(formatSetup(s))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scanID, "scan", "", "scan identifier (default: latest)")
	return cmd
}

func newZonesCmd(app *App) *cobra.Command {
	var scanID string
	cmd := &cobra.Command{
		Use:   "zones TICKER",
		Short: "Show a ticker's support/resistance zones from a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("scan database unavailable")
			}
			ticker := strings.ToUpper(args[0])

			id, err := resolveScanID(cmd.Context(), app, scanID)
			if err != nil {
				return err
			}
			zs, err := app.Store.ZonesForTicker(cmd.Context(), id, ticker)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(zs)
			}
			if len(zs) == 0 {
				output.Dim("No zones for %s in scan %s.", ticker, id)
				return nil
			}
			output.Header("%s zones (scan %s)", ticker, id)
			for _, z := range zs {
				output.Printf("%-11s %8.2f  [%8.2f - %8.2f]\n", z.Type, z.Level, z.Lower, z.Upper)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scanID, "scan", "", "scan identifier (default: latest)")
	return cmd
}

func resolveScanID(ctx context.Context, app *App, scanID string) (string, error) {
	if scanID != "" {
		return scanID, nil
	}
	run, err := app.Store.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("no scans recorded yet")
	}
	return run.ID, nil
}

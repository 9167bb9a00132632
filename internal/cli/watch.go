package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"swing-scanner/internal/scanner"
)

// marketTimezone returns US Eastern time, falling back to local time
// when the zone database is unavailable.
func marketTimezone() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Local
	}
	return loc
}

func newWatchCmd(app *App) *cobra.Command {
	var (
		schedule string
		symbols  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scans on a schedule",
		Long: `Runs the full scan on a cron schedule until interrupted. The default
schedule fires at 16:30 Eastern on weekdays, half an hour after the
close, when the day's bars are final.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			u, err := resolveUniverse(app, symbols, "")
			if err != nil {
				return err
			}

			cfg := scanner.DefaultConfig()
			cfg.Concurrency = app.Config.Scan.Concurrency
			cfg.MaxTickers = app.Config.Scan.MaxTickers
			applyTuning(&cfg, app)
			s := scanner.New(cfg, app.Provider, app.Logger)

			runOnce := func() {
				res, err := s.Run(context.Background(), u)
				if err != nil {
					app.Logger.Error().Err(err).Msg("scheduled scan failed")
					return
				}
				if app.Store != nil {
					if err := app.Store.SaveScan(context.Background(), res); err != nil {
						app.Logger.Error().Err(err).Msg("failed to persist scheduled scan")
					}
				}
				renderScan(output, res)
			}

			c := cron.New(cron.WithLocation(marketTimezone()))
			if _, err := c.AddFunc(schedule, runOnce); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()

			output.Printf("Watching on schedule %q, Ctrl-C to stop.\n", schedule)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			output.Println("\nStopping.")
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "30 16 * * 1-5", "cron schedule (market timezone)")
	cmd.Flags().StringVar(&symbols, "symbols", "", "comma-separated symbols (bypasses the universe file)")
	return cmd
}

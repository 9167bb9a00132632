package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"swing-scanner/internal/config"
	"swing-scanner/internal/logging"
	"swing-scanner/internal/marketdata"
	"swing-scanner/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Provider marketdata.Provider
	Store    *store.SQLiteStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Provider: marketdata.NewYahooClient(cfg.Data.Range),
	}

	dataStore, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to open scan database, persistence disabled")
	} else {
		app.Store = dataStore
	}

	rootCmd := &cobra.Command{
		Use:   "swing-scanner",
		Short: "Swing Scanner - end-of-day pattern scanner for US equities",
		Long: `Swing Scanner walks a ticker universe at the end of each session and
hunts for swing setups: breakouts over mapped resistance, pullbacks to
rising moving averages, and cup-and-handle or flat bases. A bearish
benchmark regime gates the whole scan.

Use 'swing-scanner help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/swing-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newSetupsCmd(app))
	rootCmd.AddCommand(newZonesCmd(app))
	rootCmd.AddCommand(newRegimeCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Swing Scanner v%s\n", Version)
			}
		},
	}
}

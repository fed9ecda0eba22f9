// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradeguard/internal/audit"
	"tradeguard/internal/config"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/gate"
	"tradeguard/internal/logging"
	"tradeguard/internal/notify"
	"tradeguard/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Gate     *gate.Evaluator
	Audit    *audit.Logger
	Notifier notify.Notifier
	Loc      *time.Location

	// Now is the clock commands evaluate against. Tests pin it.
	Now func() time.Time
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid timezone, falling back to local")
		loc = time.Local
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Loc:      loc,
		Now:      time.Now,
		Notifier: notify.NewNoOpNotifier(),
	}

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Journal.DatabasePath, app.Loc)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, commands will fail until it is fixed")
	} else {
		app.Store = dataStore
		app.Gate = gate.NewEvaluator(dataStore, app.Loc, logger)
		logger.Debug().Str("path", cfg.Journal.DatabasePath).Msg("SQLite store initialized")
	}

	// Initialize audit trail
	auditLogger, err := audit.NewLogger(audit.DefaultConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize audit log")
	} else {
		app.Audit = auditLogger
	}

	// Initialize notifications
	if cfg.Notifications.Enabled {
		mn := notify.NewMultiNotifier(&cfg.Notifications)
		mn.AddChannel(notify.NewTerminalChannel(isTerminal() && cfg.UI.ColorEnabled))
		app.Notifier = mn
	}

	rootCmd := &cobra.Command{
		Use:   "tradeguard",
		Short: "TradeGuard - a discipline-first trading journal",
		Long: `TradeGuard is a personal trading journal with a discipline gate.

Every trade is logged in R-multiples. Before each real-mode trade, the gate
checks your daily limits (trade count, loss in R, consecutive losses) and
blocks further entries once one is breached. Plans, closeouts, strategies
and statistics round out the journal.

Use 'tradeguard help <command>' for more information about a command.`,
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

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradeguard)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addGateCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addPlanCommands(rootCmd, app)
	addCloseoutCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addTodayCommand(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addWatchCommands(rootCmd, app)

	return rootCmd
}

// ensureStore fails a command early when storage never came up.
func (a *App) ensureStore() error {
	if a.Store == nil || a.Gate == nil {
		return apperrors.NewStorageError("open", errors.New("store not initialized, check the database path"))
	}
	return nil
}

// audited swallows audit failures; the journal action itself already
// succeeded and a broken audit file should not undo it.
func (a *App) audited(err error) {
	if err != nil {
		a.Logger.Warn().Err(err).Msg("audit write failed")
	}
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("TradeGuard v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Journal Configuration")
	output.Printf("  Database:        %s\n", cfg.Journal.DatabasePath)
	output.Printf("  Timezone:        %s\n", cfg.Journal.Timezone)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)
	output.Println()

	output.Bold("Watch Schedules")
	output.Printf("  Gate check:      %s\n", cfg.Watch.GateSchedule)
	output.Printf("  Plan reminder:   %s\n", cfg.Watch.PlanReminder)
	output.Printf("  Closeout nudge:  %s\n", cfg.Watch.CloseoutReminder)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)

	return nil
}

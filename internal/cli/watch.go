package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	"tradeguard/internal/gate"
	"tradeguard/internal/logging"
	"tradeguard/internal/models"
	"tradeguard/internal/notify"
)

// addWatchCommands adds the watch-mode command.
func addWatchCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the gate and nag about rituals",
		Long: `Runs until interrupted, re-evaluating the gate on a schedule and
announcing transitions: the moment a limit closes the gate, the moment a
deletion or a new day reopens it. On the reminder schedules it nags for
the missing daily plan and yesterday's closeout, real mode only.

Schedules come from the [watch] section of config.toml in five-field
cron syntax, evaluated in the journal timezone.`,
		Example: `  tradeguard watch
  TRADEGUARD_WEBHOOK_URL=https://hooks.example.com/t tradeguard watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			// Watch mode always talks to the terminal; the webhook rides
			// along when configured.
			notifier := notify.NewMultiNotifier(&app.Config.Notifications)
			notifier.AddChannel(notify.NewTerminalChannel(isTerminal() && app.Config.UI.ColorEnabled))

			w := &watcher{
				app:      app,
				output:   output,
				notifier: notifier,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// First look is immediate; the schedule takes over after.
			w.checkGate(ctx)

			c := cron.New(cron.WithLocation(app.Loc))
			if _, err := c.AddFunc(app.Config.Watch.GateSchedule, func() { w.checkGate(ctx) }); err != nil {
				return err
			}
			if _, err := c.AddFunc(app.Config.Watch.PlanReminder, func() { w.remindPlan(ctx) }); err != nil {
				return err
			}
			if _, err := c.AddFunc(app.Config.Watch.CloseoutReminder, func() { w.remindCloseout(ctx) }); err != nil {
				return err
			}
			c.Start()

			app.Logger.Info().
				Str("gate_schedule", app.Config.Watch.GateSchedule).
				Str("plan_reminder", app.Config.Watch.PlanReminder).
				Str("closeout_reminder", app.Config.Watch.CloseoutReminder).
				Msg("Watch mode started")
			output.Dim("Watching. Ctrl-C to stop.")
			output.Println()

			<-ctx.Done()
			<-c.Stop().Done()

			output.Println()
			output.Info("Watch stopped.")
			return nil
		},
	}
}

// watcher carries watch-mode state between ticks.
type watcher struct {
	app      *App
	output   *Output
	notifier notify.Notifier

	mu              sync.Mutex
	last            *gate.Result
	lastPlanDay     string
	lastCloseoutDay string
}

// checkGate re-evaluates and announces transitions. Evaluation failures are
// reported, not fatal; the next tick retries.
func (w *watcher) checkGate(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := logging.WithOperation(w.app.Logger, "gate_check")
	now := w.app.Now()
	result, err := w.app.Gate.Evaluate(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Gate evaluation failed")
		if err := w.notifier.SendError(ctx, err, "gate evaluation"); err != nil {
			log.Warn().Err(err).Msg("notification failed")
		}
		return
	}

	if w.last == nil {
		w.output.Println()
		renderGateStatus(w.output, result, now)
		w.output.Println()
		w.last = result
		return
	}

	if w.last.CanTrade && !result.CanTrade {
		if err := w.notifier.SendGateClosed(ctx, result.Day, result.Reasons); err != nil {
			log.Warn().Err(err).Msg("notification failed")
		}
	}
	if !w.last.CanTrade && result.CanTrade {
		if err := w.notifier.SendGateReopened(ctx, result.Day); err != nil {
			log.Warn().Err(err).Msg("notification failed")
		}
	}
	w.last = result
}

// remindPlan nags once per day when today's plan is missing in real mode.
func (w *watcher) remindPlan(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := logging.WithOperation(w.app.Logger, "plan_reminder")
	now := w.app.Now()
	result, err := w.app.Gate.Evaluate(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Gate evaluation failed")
		return
	}
	if result.Mode != models.ModeReal || result.Requirements.PlanDone {
		return
	}
	if w.lastPlanDay == result.Day {
		return
	}
	w.lastPlanDay = result.Day

	if err := w.notifier.SendPlanReminder(ctx, result.Day); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}

// remindCloseout nags when yesterday's closeout is missing in real mode.
func (w *watcher) remindCloseout(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := logging.WithOperation(w.app.Logger, "closeout_reminder")
	now := w.app.Now()
	result, err := w.app.Gate.Evaluate(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Gate evaluation failed")
		return
	}
	if result.Mode != models.ModeReal || result.Requirements.CloseoutDone {
		return
	}
	if w.lastCloseoutDay == result.Day {
		return
	}
	w.lastCloseoutDay = result.Day

	yesterday, err := daykey.AddDays(result.Day, -1)
	if err != nil {
		return
	}
	if err := w.notifier.SendCloseoutReminder(ctx, yesterday); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}

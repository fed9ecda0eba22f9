package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/gate"
	"tradeguard/internal/logging"
	"tradeguard/internal/models"
)

// addGateCommands adds the discipline gate command group.
func addGateCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newGateCmd(app))
}

// newGateCmd creates the gate parent command. Bare `gate` shows status.
func newGateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Inspect and control the discipline gate",
		Long: `The discipline gate decides whether the next real-mode trade is allowed.

It checks three daily limits (trade count, loss in R, consecutive losses)
against today's journal and warns when the daily plan or yesterday's
closeout is missing. Demo mode always permits. A one-hour override exists
for genuine emergencies and carries a 24-hour cooldown.`,
		Example: `  tradeguard gate
  tradeguard gate mode real
  tradeguard gate set maxTradesPerDay 5
  tradeguard gate override`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateStatus(cmd, app)
		},
	}

	cmd.AddCommand(newGateStatusCmd(app))
	cmd.AddCommand(newGateOverrideCmd(app))
	cmd.AddCommand(newGateClearCmd(app))
	cmd.AddCommand(newGateModeCmd(app))
	cmd.AddCommand(newGateSetCmd(app))
	cmd.AddCommand(newGateSettingsCmd(app))

	return cmd
}

// newGateStatusCmd creates the gate status command.
func newGateStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current gate decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateStatus(cmd, app)
		},
	}
}

func runGateStatus(cmd *cobra.Command, app *App) error {
	output := NewOutput(cmd)

	if err := app.ensureStore(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := app.Now()
	result, err := app.Gate.Evaluate(ctx, now)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		return output.JSON(result)
	}

	output.Println()
	output.Bold("🛡️  Discipline Gate")
	output.Println()
	renderGateStatus(output, result, now)
	return nil
}

// renderGateStatus prints the human-readable gate panel. The today command
// reuses it for its dashboard.
func renderGateStatus(output *Output, result *gate.Result, now time.Time) {
	demo := result.Mode != models.ModeReal

	output.Printf("  %s  %s  %s\n",
		output.GatePill(result.CanTrade, result.OverrideActive, demo),
		output.BoldText(FormatMode(string(result.Mode))+" mode"),
		output.DimText(result.Day))
	output.Println()

	stats := result.Stats
	limits := result.Limits

	output.Printf("  %s %d of %s\n", PadRight("Trades", 14), stats.TradeCount, countLimitText(limits.MaxTradesPerDay))
	output.Printf("  %s %s (limit %s)\n", PadRight("Day result", 14), output.FormatRColored(stats.SumR), lossLimitText(limits.MaxDailyLossR))
	output.Printf("  %s %d of %s\n", PadRight("Loss streak", 14), stats.ConsecutiveLosses, countLimitText(limits.MaxConsecutiveLosses))

	if warnings := result.WarningLabels(); len(warnings) > 0 {
		output.Println()
		for _, w := range warnings {
			output.Printf("  %s %s\n", output.Yellow("⚠"), w)
		}
	}

	if result.Blocked() {
		output.Println()
		for _, reason := range result.Reasons {
			output.Printf("  %s %s\n", output.Red("✗"), reason)
		}
	}

	if result.OverrideActive {
		output.Println()
		output.Printf("  %s ends in %s\n", output.Yellow("Override active,"), FormatDuration(result.OverrideUntil.Sub(now)))
	} else if now.Before(result.CooldownUntil) {
		output.Println()
		output.Printf("  %s\n", output.DimText("Override on cooldown for "+FormatDuration(result.CooldownUntil.Sub(now))))
	}

	output.Println()
	switch {
	case demo:
		output.Printf("  %s\n", output.DimText("Demo mode, nothing blocks. Switch with: tradeguard gate mode real"))
	case result.Blocked() && result.OverrideActive:
		output.Printf("  %s\n", output.Yellow("Limits breached but the override is letting trades through."))
	case result.Blocked():
		output.Printf("  %s\n", output.Red("Gate closed. No more real trades today."))
	default:
		output.Printf("  %s\n", output.Green("Clear to trade."))
	}
}

// countLimitText renders an integer limit, "off" when disabled.
func countLimitText(limit int) string {
	if limit <= 0 {
		return "off"
	}
	return strconv.Itoa(limit)
}

// lossLimitText renders the loss limit as a negative R bound, "off" when
// disabled.
func lossLimitText(limit float64) string {
	if limit <= 0 {
		return "off"
	}
	return fmt.Sprintf("-%.2fR", limit)
}

// newGateOverrideCmd creates the emergency override command.
func newGateOverrideCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "override",
		Short: "Open the gate for one hour (24h cooldown)",
		Long: `Activates the emergency override. The gate stays open for one hour no
matter what the limits say, and the override cannot be activated again for
24 hours. Limit breaches are still recorded and shown.

Use this for a genuine reason to keep trading, not to dodge a bad day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			result, activated, err := app.Gate.ActivateOverride(ctx, now)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrOverrideDemoMode) {
					output.Info("Demo mode never blocks, there is nothing to override.")
					return nil
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			if !activated {
				output.Warning("Override is on cooldown for another %s.", FormatDuration(result.CooldownUntil.Sub(now)))
				if result.OverrideActive {
					output.Printf("  The current override still has %s left.\n", FormatDuration(result.OverrideUntil.Sub(now)))
				}
				return nil
			}

			if app.Audit != nil {
				app.audited(app.Audit.LogOverrideActivated(ctx, result.OverrideUntil, result.CooldownUntil))
			}
			logging.LogOverrideActivated(app.Logger, result.OverrideUntil, result.CooldownUntil)

			output.Success("✓ Override active until %s", FormatTime(result.OverrideUntil.In(app.Loc)))
			output.Printf("  Next activation possible %s.\n", FormatDateTime(result.CooldownUntil.In(app.Loc)))
			output.Println()
			renderGateStatus(output, result, now)
			return nil
		},
	}
}

// newGateClearCmd creates the command that ends an override early.
func newGateClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "End an active override early",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			wasActive := false
			if before, err := app.Gate.Evaluate(ctx, now); err == nil {
				wasActive = before.OverrideActive
			}

			result, err := app.Gate.ClearOverride(ctx, now)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			if !wasActive {
				output.Info("No override was active.")
				return nil
			}

			if app.Audit != nil {
				app.audited(app.Audit.LogOverrideCleared(ctx))
			}
			logging.LogOverrideCleared(app.Logger)

			output.Success("✓ Override cleared, the cooldown stays in place")
			output.Println()
			renderGateStatus(output, result, now)
			return nil
		},
	}
}

// newGateModeCmd creates the demo/real switch command.
func newGateModeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <demo|real>",
		Short: "Switch between demo and real mode",
		Long: `Switches the app mode. Real mode enforces the gate before every trade
and stamps limit breaches onto forced trades. Demo mode logs trades
without enforcement. Switching modes never touches the override timer
or its cooldown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			if err := gate.ValidateSettingValue(gate.KeyAppMode, args[0]); err != nil {
				return err
			}
			mode := models.ParseMode(args[0])

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			old, _, err := app.Store.GetSetting(ctx, gate.KeyAppMode)
			if err != nil {
				return err
			}
			if err := app.Gate.SetMode(ctx, mode); err != nil {
				return err
			}
			if app.Audit != nil {
				app.audited(app.Audit.LogModeChanged(ctx, old, string(mode)))
			}

			now := app.Now()
			result, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("✓ Mode set to %s", FormatMode(string(mode)))
			output.Println()
			renderGateStatus(output, result, now)
			return nil
		},
	}
}

// newGateSetCmd creates the gate setting editor.
func newGateSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a gate setting",
		Long: `Writes one gate setting. Run 'tradeguard gate settings' to list the
known keys with their current values.`,
		Example: `  tradeguard gate set maxTradesPerDay 5
  tradeguard gate set maxDailyLossR 1.5
  tradeguard gate set requireDailyCloseout 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			key, value := args[0], args[1]

			if err := app.ensureStore(); err != nil {
				return err
			}

			if !gate.KnownKey(key) {
				return apperrors.NewValidationError("key", key, "unknown setting, see 'tradeguard gate settings'")
			}
			if err := gate.ValidateSettingValue(key, value); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			old, _, err := app.Store.GetSetting(ctx, key)
			if err != nil {
				return err
			}
			if err := app.Store.SetSetting(ctx, key, value); err != nil {
				return err
			}
			logging.LogSettingChanged(app.Logger, key, old, value)
			if app.Audit != nil {
				if key == gate.KeyAppMode {
					app.audited(app.Audit.LogModeChanged(ctx, old, value))
				} else {
					app.audited(app.Audit.LogLimitChanged(ctx, key, old, value))
				}
			}

			now := app.Now()
			result, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("✓ %s = %s", key, value)
			output.Println()
			renderGateStatus(output, result, now)
			return nil
		},
	}
}

// newGateSettingsCmd creates the settings listing command.
func newGateSettingsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "List gate settings with their current values",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			type settingRow struct {
				Key    string `json:"key"`
				Value  string `json:"value"`
				Stored bool   `json:"stored"`
				Help   string `json:"help"`
			}

			rows := make([]settingRow, 0, len(gate.SettingKeys()))
			for _, key := range gate.SettingKeys() {
				value, found, err := app.Store.GetSetting(ctx, key)
				if err != nil {
					return err
				}
				if !found {
					value = "(default)"
				}
				rows = append(rows, settingRow{Key: key, Value: value, Stored: found, Help: gate.DescribeKey(key)})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			output.Println()
			output.Bold("⚙️  Gate Settings")
			output.Println()

			table := NewTable(output, "Key", "Value", "Notes")
			for _, row := range rows {
				value := row.Value
				if !row.Stored {
					value = output.DimText(value)
				}
				table.AddRow(row.Key, value, row.Help)
			}
			table.Render()
			return nil
		},
	}
}

package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/models"
)

// addPlanCommands adds the daily plan command group.
func addPlanCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPlanCmd(app))
}

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Daily plan management",
		Long: `The daily plan is the pre-session ritual: bias, key levels, scenarios
and whether news makes the day dangerous. One plan per day; saving again
overwrites. In real mode the gate warns until today's plan exists.`,
	}

	cmd.AddCommand(newPlanSetCmd(app))
	cmd.AddCommand(newPlanShowCmd(app))

	return cmd
}

func newPlanSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write today's plan",
		Example: `  tradeguard plan set --bias long --levels "2045 res, 2031 sup"
  tradeguard plan set --bias short --news --scenarios "short the retest of 2040"
  tradeguard plan set --day 2025-03-11 --bias neutral`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			day, _ := cmd.Flags().GetString("day")
			bias, _ := cmd.Flags().GetString("bias")
			news, _ := cmd.Flags().GetBool("news")
			levels, _ := cmd.Flags().GetString("levels")
			scenarios, _ := cmd.Flags().GetString("scenarios")

			now := app.Now()
			if day == "" {
				day = daykey.At(now, app.Loc)
			} else if !daykey.Valid(day) {
				return apperrors.NewValidationError("day", day, "expected YYYY-MM-DD")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			plan := &models.DailyPlan{
				Day:         day,
				Bias:        bias,
				NewsCaution: news,
				KeyLevels:   levels,
				Scenarios:   scenarios,
				CreatedAt:   now,
			}
			if err := app.Store.SaveDailyPlan(ctx, plan); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(plan)
			}

			output.Success("✓ Plan saved for %s", day)
			output.Println()
			displayPlan(output, plan)
			return nil
		},
	}

	cmd.Flags().String("day", "", "Day to plan (YYYY-MM-DD, default today)")
	cmd.Flags().String("bias", "", "Directional bias for the day")
	cmd.Flags().Bool("news", false, "Mark the day as news-sensitive")
	cmd.Flags().String("levels", "", "Key levels to watch")
	cmd.Flags().String("scenarios", "", "Planned scenarios")

	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a day's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			day, _ := cmd.Flags().GetString("day")
			if day == "" {
				day = daykey.At(app.Now(), app.Loc)
			} else if !daykey.Valid(day) {
				return apperrors.NewValidationError("day", day, "expected YYYY-MM-DD")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			plan, err := app.Store.GetDailyPlan(ctx, day)
			if err != nil {
				return err
			}
			if plan == nil {
				if output.IsJSON() {
					return output.JSON(nil)
				}
				output.Info("No plan for %s.", day)
				output.Dim("Create one with 'tradeguard plan set --bias ...'")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(plan)
			}

			output.Println()
			displayPlan(output, plan)
			return nil
		},
	}

	cmd.Flags().String("day", "", "Day to show (YYYY-MM-DD, default today)")

	return cmd
}

func displayPlan(output *Output, plan *models.DailyPlan) {
	output.Bold("📝 Plan for %s", plan.Day)
	output.Printf("  %s %s\n", PadRight("Bias", 11), valueOrDash(plan.Bias))
	if plan.NewsCaution {
		output.Printf("  %s %s\n", PadRight("News", 11), output.Yellow("caution"))
	} else {
		output.Printf("  %s -\n", PadRight("News", 11))
	}
	output.Printf("  %s %s\n", PadRight("Levels", 11), valueOrDash(plan.KeyLevels))
	output.Printf("  %s %s\n", PadRight("Scenarios", 11), valueOrDash(plan.Scenarios))
	output.Printf("  %s %s\n", PadRight("Written", 11), output.DimText(FormatDateTime(plan.CreatedAt)))
}

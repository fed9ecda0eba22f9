package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/models"
)

// addCloseoutCommands adds the daily closeout command group.
func addCloseoutCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCloseoutCmd(app))
}

func newCloseoutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closeout",
		Short: "Daily closeout management",
		Long: `The closeout is the end-of-session review: mood, an execution grade,
what happened and what to take from it. One per day, overwriting on
re-save. In real mode the gate warns the next morning until yesterday's
closeout exists.`,
	}

	cmd.AddCommand(newCloseoutSetCmd(app))
	cmd.AddCommand(newCloseoutShowCmd(app))

	return cmd
}

func newCloseoutSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write today's closeout",
		Example: `  tradeguard closeout set --mood 4 --grade A --review "followed the plan"
  tradeguard closeout set --mood 2 --grade C --lessons "stop revenge trading"
  tradeguard closeout set --day 2025-03-09 --mood 3 --grade B`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			day, _ := cmd.Flags().GetString("day")
			mood, _ := cmd.Flags().GetInt("mood")
			grade, _ := cmd.Flags().GetString("grade")
			review, _ := cmd.Flags().GetString("review")
			lessons, _ := cmd.Flags().GetString("lessons")

			now := app.Now()
			if day == "" {
				day = daykey.At(now, app.Loc)
			} else if !daykey.Valid(day) {
				return apperrors.NewValidationError("day", day, "expected YYYY-MM-DD")
			}
			if mood < 1 || mood > 5 {
				return apperrors.NewValidationError("mood", mood, "must be 1 to 5")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			closeout := &models.DailyCloseout{
				Day:       day,
				Mood:      mood,
				Grade:     grade,
				Review:    review,
				Lessons:   lessons,
				CreatedAt: now,
			}
			if err := app.Store.SaveDailyCloseout(ctx, closeout); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(closeout)
			}

			output.Success("✓ Closeout saved for %s", day)
			output.Println()
			displayCloseout(output, closeout)
			return nil
		},
	}

	cmd.Flags().String("day", "", "Day to close out (YYYY-MM-DD, default today)")
	cmd.Flags().Int("mood", 3, "Mood 1-5")
	cmd.Flags().String("grade", "", "Execution grade (A-F)")
	cmd.Flags().String("review", "", "What happened")
	cmd.Flags().String("lessons", "", "What to take from it")

	return cmd
}

func newCloseoutShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a day's closeout",
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

			closeout, err := app.Store.GetDailyCloseout(ctx, day)
			if err != nil {
				return err
			}
			if closeout == nil {
				if output.IsJSON() {
					return output.JSON(nil)
				}
				output.Info("No closeout for %s.", day)
				output.Dim("Write one with 'tradeguard closeout set --mood ... --grade ...'")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(closeout)
			}

			output.Println()
			displayCloseout(output, closeout)
			return nil
		},
	}

	cmd.Flags().String("day", "", "Day to show (YYYY-MM-DD, default today)")

	return cmd
}

func displayCloseout(output *Output, c *models.DailyCloseout) {
	output.Bold("🌙 Closeout for %s", c.Day)
	output.Printf("  %s %s\n", PadRight("Mood", 9), formatStars(c.Mood))
	output.Printf("  %s %s\n", PadRight("Grade", 9), valueOrDash(c.Grade))
	output.Printf("  %s %s\n", PadRight("Review", 9), valueOrDash(c.Review))
	output.Printf("  %s %s\n", PadRight("Lessons", 9), valueOrDash(c.Lessons))
	output.Printf("  %s %s\n", PadRight("Written", 9), output.DimText(FormatDateTime(c.CreatedAt)))
}

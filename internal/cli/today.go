package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	"tradeguard/internal/store"
)

// addTodayCommand adds the daily dashboard command.
func addTodayCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTodayCmd(app))
}

func newTodayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Today's dashboard",
		Long: `One screen for the trading day: the gate decision, the plan and
closeout checkboxes, today's trades and the running numbers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			today := daykey.At(now, app.Loc)
			yesterday, err := daykey.AddDays(today, -1)
			if err != nil {
				return err
			}

			result, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}

			trades, err := app.Store.GetTrades(ctx, store.TradeFilter{Day: today, Limit: 100})
			if err != nil {
				return err
			}

			plan, err := app.Store.GetDailyPlan(ctx, today)
			if err != nil {
				return err
			}
			closeoutDone, err := app.Store.HasDailyCloseout(ctx, yesterday)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"day":                   today,
					"gate":                  result,
					"trades":                trades,
					"plan":                  plan,
					"yesterdayCloseoutDone": closeoutDone,
				})
			}

			output.Println()
			output.Bold("📅 %s", now.In(app.Loc).Format("Monday, 02-Jan-2006"))
			output.Println()
			renderGateStatus(output, result, now)

			output.Println()
			if plan != nil {
				planSummary := valueOrDash(plan.Bias)
				if plan.NewsCaution {
					planSummary += ", " + output.Yellow("news caution")
				}
				output.Printf("  %s %s %s\n", PadRight("Plan", 20), output.Green("✓"), planSummary)
			} else {
				output.Printf("  %s %s %s\n", PadRight("Plan", 20), output.Red("✗"), output.DimText("tradeguard plan set --bias ..."))
			}
			if closeoutDone {
				output.Printf("  %s %s\n", PadRight("Yesterday closeout", 20), output.Green("✓"))
			} else {
				output.Printf("  %s %s %s\n", PadRight("Yesterday closeout", 20), output.Red("✗"), output.DimText("tradeguard closeout set --day "+yesterday))
			}

			output.Println()
			if len(trades) == 0 {
				output.Info("No trades logged today.")
				return nil
			}

			output.Bold("Trades")
			table := NewTable(output, "Time", "R", "Session", "TF", "Strategy", "Breaks")
			for _, t := range trades {
				table.AddRow(
					FormatTime(t.CreatedAt.In(app.Loc)),
					output.FormatRColored(t.ResultR),
					t.Session,
					t.Timeframe,
					TruncateString(t.StrategyName, 18),
					TruncateString(strings.Join(t.RuleBreaks, ","), 26),
				)
			}
			table.Render()

			stats := result.Stats
			output.Println()
			output.Bold("Summary")
			output.Printf("  %s %d (%d wins, %s win rate)\n", PadRight("Trades", 10), stats.TradeCount, stats.Wins, FormatWinRate(stats.WinRate))
			output.Printf("  %s %s\n", PadRight("Net", 10), output.FormatRColored(stats.SumR))
			output.Printf("  %s %s\n", PadRight("Average", 10), output.FormatRColored(stats.AvgR))
			if stats.ConsecutiveLosses > 0 {
				output.Printf("  %s %d\n", PadRight("Streak", 10), stats.ConsecutiveLosses)
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/store"
)

// addStatsCommands adds the performance stats command.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
}

// groupStats accumulates per-bucket numbers for the breakdown tables.
type groupStats struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	SumR   float64 `json:"sumR"`
}

// statsReport is the full aggregate for a period. Everything is in R.
type statsReport struct {
	From         string                `json:"from,omitempty"`
	To           string                `json:"to,omitempty"`
	Trades       int                   `json:"trades"`
	Wins         int                   `json:"wins"`
	Losses       int                   `json:"losses"`
	Breakeven    int                   `json:"breakeven"`
	WinRate      float64               `json:"winRate"`
	NetR         float64               `json:"netR"`
	AvgR         float64               `json:"avgR"`
	GrossWinR    float64               `json:"grossWinR"`
	GrossLossR   float64               `json:"grossLossR"`
	ProfitFactor float64               `json:"profitFactor"`
	LargestWinR  float64               `json:"largestWinR"`
	LargestLossR float64               `json:"largestLossR"`
	ByStrategy   map[string]groupStats `json:"byStrategy,omitempty"`
	BySession    map[string]groupStats `json:"bySession,omitempty"`
	RuleBreaks   map[string]int        `json:"ruleBreaks,omitempty"`
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Performance statistics",
		Long: `Aggregates the journal over a period. Everything is reported in
R-multiples: net, averages, profit factor, per-strategy and per-session
breakdowns, and how often each discipline rule was broken.`,
		Example: `  tradeguard stats
  tradeguard stats --period month
  tradeguard stats --from 2025-03-01 --to 2025-03-31
  tradeguard stats --strategy "Gold breakout" --period all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			period, _ := cmd.Flags().GetString("period")
			fromArg, _ := cmd.Flags().GetString("from")
			toArg, _ := cmd.Flags().GetString("to")
			strategyRef, _ := cmd.Flags().GetString("strategy")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			filter := store.TradeFilter{Limit: 5000}
			report := &statsReport{
				ByStrategy: make(map[string]groupStats),
				BySession:  make(map[string]groupStats),
				RuleBreaks: make(map[string]int),
			}

			switch {
			case fromArg != "" || toArg != "":
				if fromArg != "" {
					if !daykey.Valid(fromArg) {
						return apperrors.NewValidationError("from", fromArg, "expected YYYY-MM-DD")
					}
					start, _, err := daykey.Window(fromArg, app.Loc)
					if err != nil {
						return err
					}
					filter.From = start
					report.From = fromArg
				}
				if toArg != "" {
					if !daykey.Valid(toArg) {
						return apperrors.NewValidationError("to", toArg, "expected YYYY-MM-DD")
					}
					_, end, err := daykey.Window(toArg, app.Loc)
					if err != nil {
						return err
					}
					filter.To = end
					report.To = toArg
				}
			default:
				today := daykey.At(now, app.Loc)
				switch period {
				case "day":
					filter.Day = today
					report.From, report.To = today, today
				case "week":
					filter.From = now.AddDate(0, 0, -7)
					report.From = daykey.At(filter.From, app.Loc)
					report.To = today
				case "month":
					filter.From = now.AddDate(0, -1, 0)
					report.From = daykey.At(filter.From, app.Loc)
					report.To = today
				case "all":
					// No time bounds.
				default:
					return apperrors.NewValidationError("period", period, "must be day, week, month or all")
				}
			}

			if strategyRef != "" {
				strategy, err := resolveStrategy(ctx, app.Store, strategyRef)
				if err != nil {
					return err
				}
				filter.StrategyID = strategy.ID
			}

			trades, err := app.Store.GetTrades(ctx, filter)
			if err != nil {
				return err
			}

			for _, t := range trades {
				report.Trades++
				report.NetR += t.ResultR

				switch {
				case t.Win():
					report.Wins++
					report.GrossWinR += t.ResultR
					if t.ResultR > report.LargestWinR {
						report.LargestWinR = t.ResultR
					}
				case t.Loss():
					report.Losses++
					report.GrossLossR += t.ResultR
					if t.ResultR < report.LargestLossR {
						report.LargestLossR = t.ResultR
					}
				default:
					report.Breakeven++
				}

				name := t.StrategyName
				if name == "" {
					name = "(none)"
				}
				bumpGroup(report.ByStrategy, name, t.ResultR, t.Win())

				session := t.Session
				if session == "" {
					session = "(none)"
				}
				bumpGroup(report.BySession, session, t.ResultR, t.Win())

				for _, b := range t.RuleBreaks {
					report.RuleBreaks[b]++
				}
			}

			if report.Trades > 0 {
				report.WinRate = float64(report.Wins) / float64(report.Trades)
				report.AvgR = report.NetR / float64(report.Trades)
			}
			if report.GrossLossR != 0 {
				report.ProfitFactor = report.GrossWinR / (-report.GrossLossR)
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Println()
			if report.From != "" {
				output.Bold("📊 Performance, %s to %s", report.From, report.To)
			} else {
				output.Bold("📊 Performance, all time")
			}
			output.Println()

			if report.Trades == 0 {
				output.Info("No trades in this period.")
				return nil
			}

			output.Bold("Summary")
			output.Printf("  %s %d (%d wins, %d losses, %d breakeven)\n", PadRight("Trades", 15), report.Trades, report.Wins, report.Losses, report.Breakeven)
			output.Printf("  %s %s\n", PadRight("Win rate", 15), FormatWinRate(report.WinRate))
			output.Printf("  %s %s\n", PadRight("Net", 15), output.FormatRColored(report.NetR))
			output.Printf("  %s %s\n", PadRight("Average", 15), output.FormatRColored(report.AvgR))
			output.Printf("  %s %.2f\n", PadRight("Profit factor", 15), report.ProfitFactor)
			output.Printf("  %s %s / %s\n", PadRight("Largest", 15), output.FormatRColored(report.LargestWinR), output.FormatRColored(report.LargestLossR))
			output.Println()

			if len(report.ByStrategy) > 0 {
				output.Bold("By Strategy")
				renderGroupTable(output, report.ByStrategy)
				output.Println()
			}
			if len(report.BySession) > 0 {
				output.Bold("By Session")
				renderGroupTable(output, report.BySession)
				output.Println()
			}
			if len(report.RuleBreaks) > 0 {
				output.Bold("Rule Breaks")
				for _, rb := range sortedCounts(report.RuleBreaks) {
					output.Printf("  %s %s\n", PadRight(rb.name, 24), output.Yellow(PadLeft(strconv.Itoa(rb.count), 3)))
				}
			}
			return nil
		},
	}

	cmd.Flags().String("period", "week", "Period (day, week, month, all)")
	cmd.Flags().String("from", "", "Range start day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Range end day (YYYY-MM-DD)")
	cmd.Flags().StringP("strategy", "s", "", "Limit to one strategy (name or ID)")

	return cmd
}

func bumpGroup(groups map[string]groupStats, key string, r float64, win bool) {
	g := groups[key]
	g.Trades++
	g.SumR += r
	if win {
		g.Wins++
	}
	groups[key] = g
}

// renderGroupTable prints one breakdown, best net R first.
func renderGroupTable(output *Output, groups map[string]groupStats) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if groups[names[i]].SumR != groups[names[j]].SumR {
			return groups[names[i]].SumR > groups[names[j]].SumR
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		g := groups[name]
		winRate := 0.0
		if g.Trades > 0 {
			winRate = float64(g.Wins) / float64(g.Trades)
		}
		output.Printf("  %s %2d trades  %s  %s win\n",
			PadRight(TruncateString(name, 22), 22), g.Trades, output.FormatRColored(g.SumR), FormatWinRate(winRate))
	}
}

type countRow struct {
	name  string
	count int
}

func sortedCounts(counts map[string]int) []countRow {
	rows := make([]countRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, countRow{name, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

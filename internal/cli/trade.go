package cli

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradeguard/internal/daykey"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/logging"
	"tradeguard/internal/models"
	"tradeguard/internal/rulebreak"
	"tradeguard/internal/store"
	"tradeguard/pkg/id"
)

// addTradeCommands adds the trade journal command group.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTradeCmd(app))
}

func newTradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Log and browse journal trades",
		Long: `Trades are journal entries, not orders. Each one records the signed
outcome in R-multiples plus whatever context you want to keep: session,
timeframe, bias, strategy, tags, notes and any rule breaks.

In real mode the discipline gate runs before every add. A closed gate
refuses the entry unless you pass --force, which records the trade with
a forced-past-gate rule break.`,
		Example: `  tradeguard trade add --r 1.5 --session london --strategy "Gold breakout"
  tradeguard trade add --r -1 --risk 1 --tags FOMC,CHASED --force
  tradeguard trade list --day 2025-03-10
  tradeguard trade show 01HX5K3V9T4R8Q2M7N6P1W0XYZ`,
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeTagCmd(app))
	cmd.AddCommand(newTradeNoteCmd(app))

	return cmd
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a trade",
		Long: `Logs one trade with its result in R-multiples.

The result is required and signed: +1.5 is a win of one and a half R,
-1 is a full stop-out. The planned risk (--risk) is optional; a value
that does not parse as a number is kept as "no risk recorded" and the
trade gets an INVALID_RISK_INPUT rule break instead of being refused.`,
		Example: `  tradeguard trade add --r 2.25
  tradeguard trade add --r -1 --risk 1 --session ny --tf m15 --bias short
  tradeguard trade add --r -0.5 --breaks CHASED --notes "entered before the retest"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			resultR, _ := cmd.Flags().GetFloat64("r")
			riskInput, _ := cmd.Flags().GetString("risk")
			session, _ := cmd.Flags().GetString("session")
			timeframe, _ := cmd.Flags().GetString("tf")
			bias, _ := cmd.Flags().GetString("bias")
			strategyRef, _ := cmd.Flags().GetString("strategy")
			notes, _ := cmd.Flags().GetString("notes")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			breaks, _ := cmd.Flags().GetStringSlice("breaks")
			force, _ := cmd.Flags().GetBool("force")

			if math.IsNaN(resultR) || math.IsInf(resultR, 0) {
				return apperrors.NewValidationError("r", strconv.FormatFloat(resultR, 'f', -1, 64), "result must be a finite number")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			day := daykey.At(now, app.Loc)

			before, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}

			if !before.CanTrade && !force {
				if app.Audit != nil {
					app.audited(app.Audit.LogTradeBlocked(ctx, day, before.Reasons))
				}
				logging.LogTradeBlocked(app.Logger, before.Reasons)
				if err := app.Notifier.SendGateClosed(ctx, day, before.Reasons); err != nil {
					app.Logger.Warn().Err(err).Msg("notification failed")
				}

				if output.IsJSON() {
					return apperrors.NewGateLockedError(before.Reasons)
				}
				output.Println()
				renderGateStatus(output, before, now)
				output.Println()
				output.Dim("Log it anyway with --force, or open the gate with 'tradeguard gate override'.")
				return apperrors.NewGateLockedError(before.Reasons)
			}

			// Codes accumulate from the user's own admissions, then from
			// what the gate observed at entry time. The gate only stamps
			// in real mode; user-entered breaks are journal content and
			// stay in demo too.
			codes := make([]rulebreak.Code, 0, len(breaks)+4)
			for _, b := range breaks {
				codes = append(codes, rulebreak.Normalize(b))
			}

			var riskR *float64
			if riskInput != "" {
				if v, err := strconv.ParseFloat(riskInput, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
					riskR = &v
				} else {
					codes = append(codes, rulebreak.InvalidRiskInput)
					output.Warning("⚠ Risk %q is not a usable number, recording the trade without it", riskInput)
				}
			}

			forced := false
			if before.Mode == models.ModeReal {
				codes = append(codes, before.SoftWarnings...)
				if before.Blocked() {
					codes = append(codes, before.BreachCodes...)
					if before.OverrideActive {
						codes = append(codes, rulebreak.OverrideUsed)
					} else {
						forced = true
						codes = append(codes, rulebreak.TradeBlockedGate)
					}
				} else if before.OverrideActive {
					codes = append(codes, rulebreak.OverrideUsed)
				}
			}

			trade := &models.Trade{
				ID:        id.New(),
				CreatedAt: now,
				ResultR:   resultR,
				RiskR:     riskR,
				Session:   strings.ToLower(strings.TrimSpace(session)),
				Timeframe: strings.ToLower(strings.TrimSpace(timeframe)),
				Bias:      strings.ToLower(strings.TrimSpace(bias)),
				Notes:     notes,
				Tags:      models.NormalizeTags(tags),
			}
			if len(codes) > 0 {
				trade.RuleBreaks = rulebreak.Strings(codes)
			}

			if strategyRef != "" {
				strategy, err := resolveStrategy(ctx, app.Store, strategyRef)
				if err != nil {
					return err
				}
				trade.StrategyID = strategy.ID
				trade.StrategyName = strategy.Name
			}

			if err := app.Store.LogTrade(ctx, trade); err != nil {
				return err
			}
			logging.LogTradeLogged(app.Logger, trade.ID, trade.ResultR, trade.RuleBreaks)
			if app.Audit != nil {
				app.audited(app.Audit.LogTradeLogged(ctx, trade.ID, day, trade.ResultR, trade.RuleBreaks, forced))
			}

			after, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}
			if before.CanTrade && !after.CanTrade {
				if err := app.Notifier.SendGateClosed(ctx, day, after.Reasons); err != nil {
					app.Logger.Warn().Err(err).Msg("notification failed")
				}
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			if forced {
				output.Warning("⚠ Logged past a closed gate")
			}
			output.Success("✓ Trade logged: %s", FormatR(trade.ResultR))
			output.Printf("  ID: %s\n", trade.ID)
			if len(trade.RuleBreaks) > 0 {
				output.Printf("  Rule breaks: %s\n", output.Yellow(FormatList(trade.RuleBreaks)))
			}
			output.Println()
			renderGateStatus(output, after, now)
			return nil
		},
	}

	cmd.Flags().Float64("r", 0, "Trade result in R-multiples, signed (required)")
	cmd.Flags().String("risk", "", "Planned risk in R")
	cmd.Flags().String("session", "", "Session (asia, london, ny)")
	cmd.Flags().String("tf", "", "Timeframe (m1, m5, m15, h1, h4, d1)")
	cmd.Flags().String("bias", "", "Directional bias (long, short)")
	cmd.Flags().StringP("strategy", "s", "", "Strategy name or ID")
	cmd.Flags().StringP("notes", "n", "", "Free-form notes")
	cmd.Flags().StringSlice("tags", nil, "Tags, comma separated")
	cmd.Flags().StringSlice("breaks", nil, "Rule breaks to record, comma separated")
	cmd.Flags().Bool("force", false, "Log even when the gate is closed")
	cmd.MarkFlagRequired("r")

	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged trades",
		Long: `Lists trades, newest first. With no filter it shows today.

--day takes a single day, --from/--to a range, both as YYYY-MM-DD.
--all drops the day filter entirely.`,
		Example: `  tradeguard trade list
  tradeguard trade list --day 2025-03-10
  tradeguard trade list --from 2025-03-01 --to 2025-03-31 --tag FOMC
  tradeguard trade list --all --break TRADE_BLOCKED_GATE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			day, _ := cmd.Flags().GetString("day")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			all, _ := cmd.Flags().GetBool("all")
			strategyRef, _ := cmd.Flags().GetString("strategy")
			tag, _ := cmd.Flags().GetString("tag")
			ruleBreak, _ := cmd.Flags().GetString("break")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			filter := store.TradeFilter{Limit: limit}
			switch {
			case day != "":
				if !daykey.Valid(day) {
					return apperrors.NewValidationError("day", day, "expected YYYY-MM-DD")
				}
				filter.Day = day
			case from != "" || to != "":
				if from != "" {
					if !daykey.Valid(from) {
						return apperrors.NewValidationError("from", from, "expected YYYY-MM-DD")
					}
					start, _, err := daykey.Window(from, app.Loc)
					if err != nil {
						return err
					}
					filter.From = start
				}
				if to != "" {
					if !daykey.Valid(to) {
						return apperrors.NewValidationError("to", to, "expected YYYY-MM-DD")
					}
					_, end, err := daykey.Window(to, app.Loc)
					if err != nil {
						return err
					}
					filter.To = end
				}
			case !all:
				filter.Day = daykey.At(app.Now(), app.Loc)
			}

			if strategyRef != "" {
				strategy, err := resolveStrategy(ctx, app.Store, strategyRef)
				if err != nil {
					return err
				}
				filter.StrategyID = strategy.ID
			}
			if tag != "" {
				filter.Tag = models.NormalizeTag(tag)
			}
			if ruleBreak != "" {
				filter.RuleBreak = string(rulebreak.Normalize(ruleBreak))
			}

			trades, err := app.Store.GetTrades(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			output.Println()
			table := NewTable(output, "ID", "Logged", "R", "Session", "TF", "Strategy", "Tags", "Breaks")
			var sumR float64
			wins := 0
			for _, t := range trades {
				sumR += t.ResultR
				if t.Win() {
					wins++
				}
				table.AddRow(
					t.ID,
					t.CreatedAt.In(app.Loc).Format("02-Jan 15:04"),
					output.FormatRColored(t.ResultR),
					t.Session,
					t.Timeframe,
					TruncateString(t.StrategyName, 20),
					TruncateString(strings.Join(t.Tags, ","), 24),
					TruncateString(strings.Join(t.RuleBreaks, ","), 28),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d trades, %d wins, net %s\n", len(trades), wins, output.FormatRColored(sumR))
			return nil
		},
	}

	cmd.Flags().String("day", "", "Single day (YYYY-MM-DD)")
	cmd.Flags().String("from", "", "Range start day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Range end day (YYYY-MM-DD)")
	cmd.Flags().Bool("all", false, "All days")
	cmd.Flags().StringP("strategy", "s", "", "Filter by strategy name or ID")
	cmd.Flags().String("tag", "", "Filter by tag")
	cmd.Flags().String("break", "", "Filter by rule-break code")
	cmd.Flags().IntP("limit", "l", 50, "Maximum rows")

	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			trade, err := app.Store.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}
			if trade == nil {
				return apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", args[0])
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			displayTrade(output, trade, app.Loc)
			return nil
		},
	}
}

func displayTrade(output *Output, t *models.Trade, loc *time.Location) {
	output.Println()
	output.Bold("📒 Trade %s", t.ID)
	output.Println()
	output.Printf("  %s %s\n", PadRight("Logged", 12), FormatDateTime(t.CreatedAt.In(loc)))
	output.Printf("  %s %s\n", PadRight("Result", 12), output.FormatRColored(t.ResultR))
	output.Printf("  %s %s\n", PadRight("Risk", 12), FormatRiskR(t.RiskR))
	output.Printf("  %s %s\n", PadRight("Session", 12), valueOrDash(t.Session))
	output.Printf("  %s %s\n", PadRight("Timeframe", 12), valueOrDash(t.Timeframe))
	output.Printf("  %s %s\n", PadRight("Bias", 12), valueOrDash(t.Bias))
	output.Printf("  %s %s\n", PadRight("Strategy", 12), valueOrDash(t.StrategyName))
	output.Printf("  %s %s\n", PadRight("Tags", 12), FormatList(t.Tags))
	if len(t.RuleBreaks) > 0 {
		output.Printf("  %s %s\n", PadRight("Rule breaks", 12), output.Yellow(FormatList(t.RuleBreaks)))
	} else {
		output.Printf("  %s -\n", PadRight("Rule breaks", 12))
	}
	if t.Notes != "" {
		output.Println()
		output.Printf("  %s\n", output.DimText(t.Notes))
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trade",
		Long: `Removes one trade from the journal. Stats and the gate react
immediately; deleting a loss can reopen a closed gate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Now()
			day := daykey.At(now, app.Loc)

			wasOpen := true
			if before, err := app.Gate.Evaluate(ctx, now); err == nil {
				wasOpen = before.CanTrade
			}

			if err := app.Store.DeleteTrade(ctx, args[0]); err != nil {
				if apperrors.Is(err, apperrors.ErrNotFound) {
					return apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", args[0])
				}
				return err
			}
			if app.Audit != nil {
				app.audited(app.Audit.LogTradeDeleted(ctx, args[0]))
			}

			after, err := app.Gate.Evaluate(ctx, now)
			if err != nil {
				return err
			}
			if !wasOpen && after.CanTrade {
				if err := app.Notifier.SendGateReopened(ctx, day); err != nil {
					app.Logger.Warn().Err(err).Msg("notification failed")
				}
			}

			if output.IsJSON() {
				return output.JSON(after)
			}

			output.Success("✓ Trade %s deleted", args[0])
			if !wasOpen && after.CanTrade {
				output.Info("The gate is open again.")
			}
			return nil
		},
	}
}

func newTradeTagCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <id> [tags...]",
		Short: "Edit a trade's tags",
		Long: `Edits the tag set on a trade. Positional tags replace the whole set;
--add and --remove adjust it in place. Tags normalize to UPPER_SNAKE and
de-duplicate, so "late entry" and "LATE_ENTRY" are the same tag.`,
		Example: `  tradeguard trade tag 01HX5K3V9T4R8Q2M7N6P1W0XYZ FOMC CHASED
  tradeguard trade tag 01HX5K3V9T4R8Q2M7N6P1W0XYZ --add LATE_ENTRY
  tradeguard trade tag 01HX5K3V9T4R8Q2M7N6P1W0XYZ --remove FOMC`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			add, _ := cmd.Flags().GetStringSlice("add")
			remove, _ := cmd.Flags().GetStringSlice("remove")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var tags []string
			switch {
			case len(add) > 0 || len(remove) > 0:
				if len(args) > 1 {
					return apperrors.NewValidationError("tags", strings.Join(args[1:], " "), "give positional tags or --add/--remove, not both")
				}
				trade, err := app.Store.GetTrade(ctx, args[0])
				if err != nil {
					return err
				}
				if trade == nil {
					return apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", args[0])
				}
				tags = models.NormalizeTags(append(trade.Tags, add...))
				for _, gone := range models.NormalizeTags(remove) {
					for i, tag := range tags {
						if tag == gone {
							tags = append(tags[:i], tags[i+1:]...)
							break
						}
					}
				}
			case len(args) > 1:
				tags = models.NormalizeTags(args[1:])
				if len(tags) == 0 {
					return apperrors.NewValidationError("tags", strings.Join(args[1:], " "), "nothing survived normalization")
				}
			default:
				return apperrors.NewValidationError("tags", "", "give tags to set, or --add/--remove")
			}

			if err := app.Store.UpdateTradeTags(ctx, args[0], tags); err != nil {
				if apperrors.Is(err, apperrors.ErrNotFound) {
					return apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", args[0])
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": args[0], "tags": tags})
			}

			output.Success("✓ Tags set: %s", FormatList(tags))
			return nil
		},
	}

	cmd.Flags().StringSlice("add", nil, "Tags to add")
	cmd.Flags().StringSlice("remove", nil, "Tags to remove")

	return cmd
}

func newTradeNoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text...>",
		Short: "Replace a trade's notes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			notes := strings.Join(args[1:], " ")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.Store.UpdateTradeNotes(ctx, args[0], notes); err != nil {
				if apperrors.Is(err, apperrors.ErrNotFound) {
					return apperrors.Wrapf(apperrors.ErrNotFound, "trade %s", args[0])
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": args[0], "notes": notes})
			}

			output.Success("✓ Notes updated")
			return nil
		},
	}
}

// resolveStrategy accepts either a ULID or a name. Names are the everyday
// path; IDs disambiguate after a rename.
func resolveStrategy(ctx context.Context, st store.DataStore, ref string) (*models.Strategy, error) {
	if id.Valid(ref) {
		strategy, err := st.GetStrategy(ctx, ref)
		if err != nil {
			return nil, err
		}
		if strategy != nil {
			return strategy, nil
		}
	}
	strategy, err := st.GetStrategyByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, apperrors.NewValidationError("strategy", ref, "no strategy with that name or ID, see 'tradeguard strategy list'")
	}
	return strategy, nil
}

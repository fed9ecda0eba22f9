package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/models"
	"tradeguard/internal/store"
	"tradeguard/pkg/id"
)

// addStrategyCommands adds the strategy library command group.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStrategyCmd(app))
}

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Strategy library",
		Long: `Strategies are named, reusable trade definitions. Trades reference them
by ID and keep a name snapshot, so deleting a strategy never touches the
trades logged under it.`,
	}

	cmd.AddCommand(newStrategyAddCmd(app))
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyShowCmd(app))
	cmd.AddCommand(newStrategyEditCmd(app))
	cmd.AddCommand(newStrategyDeleteCmd(app))

	return cmd
}

// parseMarket validates the market tag.
func parseMarket(s string) (models.Market, error) {
	m := models.Market(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case models.MarketGold, models.MarketUS30, models.MarketBoth:
		return m, nil
	}
	return "", apperrors.NewValidationError("market", s, "must be gold, us30 or both")
}

func newStrategyAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a strategy",
		Example: `  tradeguard strategy add "Gold breakout" --market gold --tf m15,h1
  tradeguard strategy add "US30 open drive" --market us30 --style momentum --checklist "news clear? levels marked?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			name := strings.TrimSpace(args[0])
			if name == "" {
				return apperrors.NewValidationError("name", args[0], "cannot be empty")
			}

			marketInput, _ := cmd.Flags().GetString("market")
			styles, _ := cmd.Flags().GetStringSlice("style")
			timeframes, _ := cmd.Flags().GetStringSlice("tf")
			description, _ := cmd.Flags().GetString("desc")
			checklist, _ := cmd.Flags().GetString("checklist")
			image, _ := cmd.Flags().GetString("image")

			market, err := parseMarket(marketInput)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			existing, err := app.Store.GetStrategyByName(ctx, name)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperrors.NewValidationError("name", name, "a strategy with this name already exists")
			}

			now := app.Now()
			strategy := &models.Strategy{
				ID:          id.New(),
				Name:        name,
				Market:      market,
				StyleTags:   models.NormalizeTags(styles),
				Timeframes:  models.NormalizeTags(timeframes),
				Description: description,
				Checklist:   checklist,
				ImageRef:    image,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := app.Store.SaveStrategy(ctx, strategy); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(strategy)
			}

			output.Success("✓ Strategy %q added", strategy.Name)
			output.Printf("  ID: %s\n", strategy.ID)
			return nil
		},
	}

	cmd.Flags().String("market", "both", "Market (gold, us30, both)")
	cmd.Flags().StringSlice("style", nil, "Style tags, comma separated")
	cmd.Flags().StringSlice("tf", nil, "Timeframes, comma separated")
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().String("checklist", "", "Entry checklist")
	cmd.Flags().String("image", "", "Chart image reference")

	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			strategies, err := app.Store.ListStrategies(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(strategies)
			}

			if len(strategies) == 0 {
				output.Info("No strategies yet.")
				output.Dim("Add one with 'tradeguard strategy add <name>'")
				return nil
			}

			output.Println()
			table := NewTable(output, "Name", "Market", "Style", "Timeframes", "Updated")
			for _, s := range strategies {
				table.AddRow(
					s.Name,
					string(s.Market),
					TruncateString(strings.Join(s.StyleTags, ","), 24),
					strings.Join(s.Timeframes, ","),
					FormatDate(s.UpdatedAt.In(app.Loc)),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newStrategyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show a strategy with its recent trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			strategy, err := resolveStrategy(ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			trades, err := app.Store.GetTrades(ctx, store.TradeFilter{StrategyID: strategy.ID, Limit: 5})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"strategy":     strategy,
					"recentTrades": trades,
				})
			}

			output.Println()
			output.Bold("📐 %s", strategy.Name)
			output.Printf("  %s %s\n", PadRight("ID", 12), output.DimText(strategy.ID))
			output.Printf("  %s %s\n", PadRight("Market", 12), string(strategy.Market))
			output.Printf("  %s %s\n", PadRight("Style", 12), FormatList(strategy.StyleTags))
			output.Printf("  %s %s\n", PadRight("Timeframes", 12), FormatList(strategy.Timeframes))
			output.Printf("  %s %s\n", PadRight("Image", 12), valueOrDash(strategy.ImageRef))
			output.Printf("  %s %s\n", PadRight("Updated", 12), FormatDate(strategy.UpdatedAt.In(app.Loc)))
			if strategy.Description != "" {
				output.Println()
				output.Printf("  %s\n", strategy.Description)
			}
			if strategy.Checklist != "" {
				output.Println()
				output.Bold("  Checklist")
				for _, item := range strings.Split(strategy.Checklist, "\n") {
					if item = strings.TrimSpace(item); item != "" {
						output.Printf("    □ %s\n", item)
					}
				}
			}

			if len(trades) > 0 {
				output.Println()
				output.Bold("  Recent trades")
				var sumR float64
				for _, t := range trades {
					sumR += t.ResultR
					output.Printf("    %s  %s\n", t.CreatedAt.In(app.Loc).Format("02-Jan 15:04"), output.FormatRColored(t.ResultR))
				}
				output.Printf("    net %s over last %d\n", output.FormatRColored(sumR), len(trades))
			}
			return nil
		},
	}
}

func newStrategyEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <name|id>",
		Short: "Edit a strategy",
		Long: `Updates only the fields whose flags you pass. Renaming is allowed;
logged trades keep the old name snapshot.`,
		Example: `  tradeguard strategy edit "Gold breakout" --tf m5,m15
  tradeguard strategy edit "Gold breakout" --name "Gold London breakout"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			strategy, err := resolveStrategy(ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				name = strings.TrimSpace(name)
				if name == "" {
					return apperrors.NewValidationError("name", name, "cannot be empty")
				}
				if other, err := app.Store.GetStrategyByName(ctx, name); err != nil {
					return err
				} else if other != nil && other.ID != strategy.ID {
					return apperrors.NewValidationError("name", name, "a strategy with this name already exists")
				}
				strategy.Name = name
			}
			if cmd.Flags().Changed("market") {
				marketInput, _ := cmd.Flags().GetString("market")
				market, err := parseMarket(marketInput)
				if err != nil {
					return err
				}
				strategy.Market = market
			}
			if cmd.Flags().Changed("style") {
				styles, _ := cmd.Flags().GetStringSlice("style")
				strategy.StyleTags = models.NormalizeTags(styles)
			}
			if cmd.Flags().Changed("tf") {
				timeframes, _ := cmd.Flags().GetStringSlice("tf")
				strategy.Timeframes = models.NormalizeTags(timeframes)
			}
			if cmd.Flags().Changed("desc") {
				strategy.Description, _ = cmd.Flags().GetString("desc")
			}
			if cmd.Flags().Changed("checklist") {
				strategy.Checklist, _ = cmd.Flags().GetString("checklist")
			}
			if cmd.Flags().Changed("image") {
				strategy.ImageRef, _ = cmd.Flags().GetString("image")
			}
			strategy.UpdatedAt = app.Now()

			if err := app.Store.SaveStrategy(ctx, strategy); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(strategy)
			}

			output.Success("✓ Strategy %q updated", strategy.Name)
			return nil
		},
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("market", "", "Market (gold, us30, both)")
	cmd.Flags().StringSlice("style", nil, "Style tags, comma separated")
	cmd.Flags().StringSlice("tf", nil, "Timeframes, comma separated")
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().String("checklist", "", "Entry checklist")
	cmd.Flags().String("image", "", "Chart image reference")

	return cmd
}

func newStrategyDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a strategy",
		Long:  `Removes the strategy. Trades logged under it keep its name.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.ensureStore(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			strategy, err := resolveStrategy(ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			if err := app.Store.DeleteStrategy(ctx, strategy.ID); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": strategy.ID, "deleted": true})
			}

			output.Success("✓ Strategy %q deleted", strategy.Name)
			output.Dim("Trades logged under it keep the name snapshot.")
			return nil
		},
	}
}

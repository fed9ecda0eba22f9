// Package integration exercises the journal end to end: a real SQLite
// file on disk, the gate evaluator reading it, and settings, trades,
// plans and strategies flowing between them the way a trading day does.
package integration

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeguard/internal/gate"
	"tradeguard/internal/models"
	"tradeguard/internal/rulebreak"
	"tradeguard/internal/store"
	"tradeguard/pkg/id"
)

func openJournal(t *testing.T, loc *time.Location) (*gate.Evaluator, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"), loc)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return gate.NewEvaluator(st, loc, zerolog.Nop()), st
}

// seedRealMode writes the mode and the three hard limits the way the
// settings command does, as plain strings.
func seedRealMode(t *testing.T, st *store.SQLiteStore, maxTrades int, maxLossR float64, maxStreak int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SetSetting(ctx, gate.KeyAppMode, "real"))
	require.NoError(t, st.SetSetting(ctx, gate.KeyMaxTradesPerDay, strconv.Itoa(maxTrades)))
	require.NoError(t, st.SetSetting(ctx, gate.KeyMaxDailyLossR, strconv.FormatFloat(maxLossR, 'f', -1, 64)))
	require.NoError(t, st.SetSetting(ctx, gate.KeyMaxConsecutiveLosses, strconv.Itoa(maxStreak)))
}

func addTrade(t *testing.T, st *store.SQLiteStore, at time.Time, resultR float64) *models.Trade {
	t.Helper()
	trade := &models.Trade{
		ID:        id.New(),
		CreatedAt: at,
		ResultR:   resultR,
		Session:   "london",
		Timeframe: "m5",
	}
	require.NoError(t, st.LogTrade(context.Background(), trade))
	return trade
}

func writePlan(t *testing.T, st *store.SQLiteStore, day string, at time.Time) {
	t.Helper()
	require.NoError(t, st.SaveDailyPlan(context.Background(), &models.DailyPlan{
		Day:       day,
		Bias:      "long",
		KeyLevels: "support 2310, resistance 2335",
		CreatedAt: at,
	}))
}

func writeCloseout(t *testing.T, st *store.SQLiteStore, day string, at time.Time) {
	t.Helper()
	require.NoError(t, st.SaveDailyCloseout(context.Background(), &models.DailyCloseout{
		Day:       day,
		Mood:      3,
		Grade:     "B",
		CreatedAt: at,
	}))
}

// TestRealModeTradingDay walks one full day: limits configured, plan and
// closeout in place, trades logged up to the count limit, the gate
// closing, a deletion reopening it, and the override lifecycle from
// activation through cooldown to an early clear.
func TestRealModeTradingDay(t *testing.T) {
	ev, st := openJournal(t, time.UTC)
	ctx := context.Background()

	seedRealMode(t, st, 3, 4.0, 3)
	morning := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	writePlan(t, st, "2025-03-10", morning)
	writeCloseout(t, st, "2025-03-09", morning.Add(-12*time.Hour))

	// Two trades in, one winner one loser. Everything still open.
	addTrade(t, st, morning, 1.5)
	addTrade(t, st, morning.Add(time.Hour), -1.0)

	result, err := ev.Evaluate(ctx, morning.Add(90*time.Minute))
	require.NoError(t, err)
	assert.True(t, result.CanTrade)
	assert.Empty(t, result.Reasons)
	assert.Empty(t, result.SoftWarnings)
	assert.Equal(t, 2, result.Stats.TradeCount)
	assert.InDelta(t, 0.5, result.Stats.SumR, 1e-9)

	// Third trade hits the count limit. Loss and streak limits stay out
	// of it, so exactly one reason and one code.
	third := addTrade(t, st, morning.Add(2*time.Hour), -1.0)

	result, err = ev.Evaluate(ctx, morning.Add(2*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.False(t, result.CanTrade)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "trade limit")
	assert.Equal(t, []rulebreak.Code{rulebreak.MaxTradesHit}, result.BreachCodes)

	// Deleting the third trade drops the count back under the limit.
	require.NoError(t, st.DeleteTrade(ctx, third.ID))
	result, err = ev.Evaluate(ctx, morning.Add(150*time.Minute))
	require.NoError(t, err)
	assert.True(t, result.CanTrade)
	assert.Equal(t, 2, result.Stats.TradeCount)

	// Log it again and close the gate for the override sequence.
	addTrade(t, st, morning.Add(3*time.Hour), -1.0)
	overrideAt := morning.Add(3*time.Hour + 30*time.Minute)

	result, activated, err := ev.ActivateOverride(ctx, overrideAt)
	require.NoError(t, err)
	assert.True(t, activated)
	assert.True(t, result.CanTrade)
	assert.True(t, result.OverrideActive)
	assert.NotEmpty(t, result.Reasons, "the breach stays visible while the override bypasses it")
	assert.True(t, result.OverrideUntil.Equal(overrideAt.Add(gate.OverrideDuration)))
	assert.True(t, result.CooldownUntil.Equal(overrideAt.Add(gate.OverrideCooldown)))

	// A second activation inside the cooldown is a no-op. The window
	// that is already running keeps running.
	result, activated, err = ev.ActivateOverride(ctx, overrideAt.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, activated)
	assert.True(t, result.OverrideActive)

	// Clearing ends the window early but leaves the cooldown alone.
	result, err = ev.ClearOverride(ctx, overrideAt.Add(20*time.Minute))
	require.NoError(t, err)
	assert.False(t, result.OverrideActive)
	assert.False(t, result.CanTrade)
	assert.True(t, result.CooldownUntil.Equal(overrideAt.Add(gate.OverrideCooldown)))

	result, activated, err = ev.ActivateOverride(ctx, overrideAt.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, activated)
	assert.False(t, result.CanTrade)
}

// TestLossAndStreakLimitsThroughStore drives the loss-sum and
// consecutive-loss limits through real rows, including the inclusive
// boundary on the loss limit and the recovery once a winner lands.
func TestLossAndStreakLimitsThroughStore(t *testing.T) {
	ev, st := openJournal(t, time.UTC)
	ctx := context.Background()

	// Count limit disabled, loss limit 2R, streak limit 2.
	seedRealMode(t, st, 0, 2.0, 2)
	day := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	writePlan(t, st, "2025-03-10", day)
	writeCloseout(t, st, "2025-03-09", day)

	// Two losses summing to exactly -2.0R. The loss limit is inclusive,
	// and the streak limit trips at the same moment.
	addTrade(t, st, day, -1.5)
	addTrade(t, st, day.Add(time.Hour), -0.5)

	result, err := ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, result.CanTrade)
	require.Len(t, result.Reasons, 2)
	assert.Equal(t, []rulebreak.Code{rulebreak.MaxDailyLossHit, rulebreak.ConsecLossesHit}, result.BreachCodes)
	assert.Equal(t, 2, result.Stats.ConsecutiveLosses)

	// A winner pulls the sum back over the line and resets the streak,
	// so the next evaluation opens the gate again.
	addTrade(t, st, day.Add(3*time.Hour), 2.25)

	result, err = ev.Evaluate(ctx, day.Add(4*time.Hour))
	require.NoError(t, err)
	assert.True(t, result.CanTrade)
	assert.Empty(t, result.BreachCodes)
	assert.Equal(t, 0, result.Stats.ConsecutiveLosses)
	assert.InDelta(t, 0.25, result.Stats.SumR, 1e-9)
}

// TestDayRolloverInJournalTimezone pins day boundaries to the store's
// location. Trades that close the gate late in the evening stop counting
// at local midnight, and the soft warnings move to the new day.
func TestDayRolloverInJournalTimezone(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	ev, st := openJournal(t, loc)
	ctx := context.Background()

	seedRealMode(t, st, 3, 10.0, 5)
	evening := time.Date(2025, 3, 10, 23, 0, 0, 0, loc)
	writePlan(t, st, "2025-03-10", evening)
	writeCloseout(t, st, "2025-03-09", evening)

	for i := 0; i < 3; i++ {
		addTrade(t, st, evening.Add(time.Duration(i)*10*time.Minute), -0.5)
	}

	result, err := ev.Evaluate(ctx, evening.Add(35*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", result.Day)
	assert.False(t, result.CanTrade)
	assert.Equal(t, 3, result.Stats.TradeCount)

	// Half past midnight local time. Fresh day key, fresh counters, and
	// the plan and closeout checks now point at the new day.
	pastMidnight := time.Date(2025, 3, 11, 0, 30, 0, 0, loc)
	result, err = ev.Evaluate(ctx, pastMidnight)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", result.Day)
	assert.True(t, result.CanTrade)
	assert.Equal(t, 0, result.Stats.TradeCount)
	assert.Equal(t, []rulebreak.Code{rulebreak.PlanMissing, rulebreak.CloseoutMissing}, result.SoftWarnings)
	assert.False(t, result.Requirements.PlanDone)
	assert.False(t, result.Requirements.CloseoutDone)
}

// TestStrategySnapshotSurvivesDeletion logs a trade against a strategy,
// deletes the strategy, and checks the trade keeps the name it was
// logged under while the ID still works as a filter.
func TestStrategySnapshotSurvivesDeletion(t *testing.T) {
	_, st := openJournal(t, time.UTC)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	strat := &models.Strategy{
		ID:         id.New(),
		Name:       "London Sweep",
		Market:     models.MarketGold,
		StyleTags:  []string{"liquidity", "reversal"},
		Timeframes: []string{"m5", "m15"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, st.SaveStrategy(ctx, strat))

	trade := &models.Trade{
		ID:           id.New(),
		CreatedAt:    now,
		ResultR:      2.0,
		Session:      "london",
		StrategyID:   strat.ID,
		StrategyName: strat.Name,
	}
	require.NoError(t, st.LogTrade(ctx, trade))

	require.NoError(t, st.DeleteStrategy(ctx, strat.ID))
	gone, err := st.GetStrategy(ctx, strat.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := st.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "London Sweep", kept.StrategyName)

	filtered, err := st.GetTrades(ctx, store.TradeFilter{StrategyID: strat.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, trade.ID, filtered[0].ID)
}

// TestSettingsTakeEffectImmediately flips limits and the mode between
// evaluations. The gate reads settings fresh every time, so there is no
// restart or cache to worry about.
func TestSettingsTakeEffectImmediately(t *testing.T) {
	ev, st := openJournal(t, time.UTC)
	ctx := context.Background()

	seedRealMode(t, st, 2, 10.0, 5)
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	writePlan(t, st, "2025-03-10", day)
	writeCloseout(t, st, "2025-03-09", day)

	addTrade(t, st, day, 0.5)
	addTrade(t, st, day.Add(time.Hour), 0.5)

	result, err := ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, result.CanTrade)

	// Raising the limit reopens the gate on the very next evaluation.
	require.NoError(t, st.SetSetting(ctx, gate.KeyMaxTradesPerDay, "5"))
	result, err = ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, result.CanTrade)

	// Lowering it below the current count closes it again.
	require.NoError(t, st.SetSetting(ctx, gate.KeyMaxTradesPerDay, "1"))
	result, err = ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, result.CanTrade)

	// Demo mode ignores the breach entirely. Back to real, it returns.
	require.NoError(t, ev.SetMode(ctx, models.ModeDemo))
	result, err = ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, result.CanTrade)
	assert.Equal(t, models.ModeDemo, result.Mode)
	assert.Equal(t, 2, result.Stats.TradeCount)

	require.NoError(t, ev.SetMode(ctx, models.ModeReal))
	result, err = ev.Evaluate(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, result.CanTrade)
	assert.Equal(t, models.ModeReal, result.Mode)
}

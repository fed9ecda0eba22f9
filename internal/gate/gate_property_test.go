package gate_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// propDay hands each property iteration its own trading day so trades from
// one iteration never leak into another's stats.
type propDay struct {
	n int
}

func (p *propDay) next() (string, time.Time) {
	p.n++
	day := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, p.n)
	return day.Format("2006-01-02"), day.Add(18 * time.Hour)
}

func TestProperty_DemoModeAlwaysPermits(t *testing.T) {
	ev, st := newTestGate(t)
	ctx := context.Background()
	days := &propDay{}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	properties.Property("demo mode permits regardless of losses and limits", prop.ForAll(
		func(tradeCount, maxTrades, maxStreak int) bool {
			day, evalAt := days.next()

			if err := st.SetSetting(ctx, "appMode", "demo"); err != nil {
				return false
			}
			if err := st.SetSetting(ctx, "maxTradesPerDay", strconv.Itoa(maxTrades)); err != nil {
				return false
			}
			if err := st.SetSetting(ctx, "maxConsecutiveLosses", strconv.Itoa(maxStreak)); err != nil {
				return false
			}

			noon := evalAt.Add(-6 * time.Hour)
			for i := 0; i < tradeCount; i++ {
				logTradeAt(t, st, noon.Add(time.Duration(i)*time.Minute), -1.0)
			}

			result, err := ev.Evaluate(ctx, evalAt)
			if err != nil {
				return false
			}
			return result.CanTrade &&
				len(result.Reasons) == 0 &&
				len(result.SoftWarnings) == 0 &&
				result.Day == day &&
				result.Stats.TradeCount == tradeCount
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 3),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestProperty_TradeCountRule(t *testing.T) {
	ev, st := newTestGate(t)
	ctx := context.Background()
	days := &propDay{}

	set := func(key, value string) bool {
		return st.SetSetting(ctx, key, value) == nil
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	properties.Property("gate blocks exactly when the day count reaches the limit", prop.ForAll(
		func(tradeCount, maxTrades int) bool {
			_, evalAt := days.next()

			ok := set("appMode", "real") &&
				set("maxTradesPerDay", strconv.Itoa(maxTrades)) &&
				set("maxDailyLossR", "0") &&
				set("maxConsecutiveLosses", "0") &&
				set("requireDailyPlan", "0") &&
				set("requireDailyCloseout", "0")
			if !ok {
				return false
			}

			noon := evalAt.Add(-6 * time.Hour)
			for i := 0; i < tradeCount; i++ {
				logTradeAt(t, st, noon.Add(time.Duration(i)*time.Minute), 1.0)
			}

			result, err := ev.Evaluate(ctx, evalAt)
			if err != nil {
				return false
			}

			wantBlocked := tradeCount >= maxTrades
			if result.Blocked() != wantBlocked || result.CanTrade == wantBlocked {
				return false
			}
			if wantBlocked && len(result.Reasons) != 1 {
				return false
			}
			return true
		},
		gen.IntRange(0, 8),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

func TestProperty_OverrideAlwaysWins(t *testing.T) {
	ev, st := newTestGate(t)
	ctx := context.Background()
	days := &propDay{}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	properties.Property("an active override permits even a fully breached day", prop.ForAll(
		func(tradeCount int) bool {
			_, evalAt := days.next()

			until := evalAt.Add(30 * time.Minute)
			ok := st.SetSetting(ctx, "appMode", "real") == nil &&
				st.SetSetting(ctx, "gateOverrideUntil", strconv.FormatInt(until.UnixMilli(), 10)) == nil
			if !ok {
				return false
			}

			noon := evalAt.Add(-6 * time.Hour)
			for i := 0; i < tradeCount; i++ {
				logTradeAt(t, st, noon.Add(time.Duration(i)*time.Minute), -1.0)
			}

			result, err := ev.Evaluate(ctx, evalAt)
			if err != nil {
				return false
			}
			// Breaches are still visible; the gate is just held open.
			if tradeCount >= 3 && !result.Blocked() {
				return false
			}
			return result.CanTrade && result.OverrideActive
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

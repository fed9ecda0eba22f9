package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradeguard/internal/daykey"
	"tradeguard/internal/models"
)

// Property: for any batch of finite trade results logged on one day, the
// day aggregate reports the exact count, the arithmetic sum, a division-safe
// win rate, and a consecutive-loss streak equal to the run of trailing
// negatives. Re-reading the aggregate without writes returns identical
// values.
func TestProperty_DayStatsAggregation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "property.db")
	store, err := NewSQLiteStore(dbPath, time.UTC)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	// Each iteration gets its own day so batches never mix.
	dayCursor := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	nextDay := func() (string, time.Time) {
		d := dayCursor
		dayCursor = dayCursor.AddDate(0, 0, 1)
		return d.Format(daykey.Layout), d
	}

	properties.Property("aggregate matches a direct computation", prop.ForAll(
		func(results []float64) bool {
			ctx := context.Background()
			day, dayStart := nextDay()

			for i, r := range results {
				trade := &models.Trade{
					ID:        fmt.Sprintf("%s-%03d", day, i),
					CreatedAt: dayStart.Add(time.Duration(i) * time.Minute),
					ResultR:   r,
				}
				if err := store.LogTrade(ctx, trade); err != nil {
					t.Logf("Failed to log trade: %v", err)
					return false
				}
			}

			stats, err := store.GetTradeStatsForDay(ctx, day)
			if err != nil {
				t.Logf("Failed to get stats: %v", err)
				return false
			}

			// Count and sum.
			if stats.TradeCount != len(results) {
				t.Logf("count = %d, want %d", stats.TradeCount, len(results))
				return false
			}
			var sum float64
			wins := 0
			for _, r := range results {
				sum += r
				if r > 0 {
					wins++
				}
			}
			if math.Abs(stats.SumR-sum) > 1e-6 {
				t.Logf("sum = %f, want %f", stats.SumR, sum)
				return false
			}
			if stats.Wins != wins {
				t.Logf("wins = %d, want %d", stats.Wins, wins)
				return false
			}

			// Ratios are zero-safe.
			if len(results) == 0 {
				if stats.WinRate != 0 || stats.AvgR != 0 {
					t.Logf("empty day must report zero ratios, got %f/%f", stats.WinRate, stats.AvgR)
					return false
				}
			} else {
				wantRate := float64(wins) / float64(len(results))
				if math.Abs(stats.WinRate-wantRate) > 1e-9 {
					t.Logf("winRate = %f, want %f", stats.WinRate, wantRate)
					return false
				}
			}
			if math.IsNaN(stats.WinRate) || math.IsNaN(stats.AvgR) {
				t.Log("ratios must never be NaN")
				return false
			}

			// Streak: trailing negatives, newest first.
			wantStreak := 0
			for i := len(results) - 1; i >= 0; i-- {
				if results[i] >= 0 {
					break
				}
				wantStreak++
				if wantStreak == streakScanLimit {
					break
				}
			}
			if stats.ConsecutiveLosses != wantStreak {
				t.Logf("streak = %d, want %d (results %v)", stats.ConsecutiveLosses, wantStreak, results)
				return false
			}

			// Idempotent re-read.
			again, err := store.GetTradeStatsForDay(ctx, day)
			if err != nil {
				t.Logf("Failed to re-read stats: %v", err)
				return false
			}
			if *again != *stats {
				t.Logf("re-read changed the aggregate: %+v vs %+v", again, stats)
				return false
			}

			return true
		},
		gen.SliceOf(gen.Float64Range(-5, 5)),
	))

	properties.TestingRun(t)
}

// Property: a logged trade reads back equivalent after normalization; the
// stored tag and rule-break lists are canonical regardless of input shape.
func TestProperty_TradeRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roundtrip.db")
	store, err := NewSQLiteStore(dbPath, time.UTC)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seq := 0
	properties.Property("log then get preserves the trade", prop.ForAll(
		func(resultR float64, hasRisk bool, riskR float64, tags []string, notes string) bool {
			ctx := context.Background()
			seq++

			trade := &models.Trade{
				ID:        fmt.Sprintf("rt-%06d", seq),
				CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
				ResultR:   resultR,
				Notes:     notes,
				Tags:      tags,
			}
			if hasRisk {
				trade.RiskR = &riskR
			}

			if err := store.LogTrade(ctx, trade); err != nil {
				t.Logf("Failed to log trade: %v", err)
				return false
			}

			got, err := store.GetTrade(ctx, trade.ID)
			if err != nil || got == nil {
				t.Logf("Failed to get trade back: %v", err)
				return false
			}

			if got.ResultR != resultR || got.Notes != notes {
				return false
			}
			if got.CreatedAt.UnixMilli() != trade.CreatedAt.UnixMilli() {
				return false
			}
			if hasRisk {
				if got.RiskR == nil || *got.RiskR != riskR {
					return false
				}
			} else if got.RiskR != nil {
				return false
			}

			// Stored tags equal the canonical normalization of the input.
			want := models.NormalizeTags(tags)
			if len(got.Tags) != len(want) {
				t.Logf("tags = %v, want %v", got.Tags, want)
				return false
			}
			for i := range want {
				if got.Tags[i] != want[i] {
					return false
				}
			}

			return true
		},
		gen.Float64Range(-10, 10),
		gen.Bool(),
		gen.Float64Range(0.1, 5),
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

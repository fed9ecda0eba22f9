package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradeguard/internal/daykey"
	"tradeguard/internal/logging"
	"tradeguard/internal/models"
	"tradeguard/internal/rulebreak"
)

// Store is the persistence surface the gate consumes. The concrete SQLite
// store satisfies it; tests substitute smaller fakes.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	GetTradeStatsForDay(ctx context.Context, day string) (*models.DayStats, error)
	HasDailyPlan(ctx context.Context, day string) (bool, error)
	HasDailyCloseout(ctx context.Context, day string) (bool, error)
}

// Limits echoes the numeric settings a Result was evaluated against, so
// callers can render "2 of 3 trades" style output without a second read.
type Limits struct {
	MaxTradesPerDay      int     `json:"maxTradesPerDay"`
	MaxDailyLossR        float64 `json:"maxDailyLossR"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
	RequireDailyPlan     bool    `json:"requireDailyPlan"`
	RequireDailyCloseout bool    `json:"requireDailyCloseout"`
}

// Requirements reports the presence checks behind the soft warnings. A
// requirement that is switched off reads as satisfied.
type Requirements struct {
	PlanDone     bool `json:"planDone"`
	CloseoutDone bool `json:"closeoutDone"`
}

// Result is the outcome of one gate evaluation.
type Result struct {
	CanTrade       bool             `json:"canTrade"`
	Mode           models.Mode      `json:"mode"`
	Day            string           `json:"day"`
	Reasons        []string         `json:"reasons,omitempty"`
	BreachCodes    []rulebreak.Code `json:"breachCodes,omitempty"`
	SoftWarnings   []rulebreak.Code `json:"softWarnings,omitempty"`
	OverrideActive bool             `json:"overrideActive"`
	OverrideUntil  time.Time        `json:"overrideUntil"`
	CooldownUntil  time.Time        `json:"cooldownUntil"`
	Requirements   Requirements     `json:"requirements"`
	Stats          models.DayStats  `json:"stats"`
	Limits         Limits           `json:"limits"`
	EvaluatedAt    time.Time        `json:"evaluatedAt"`
}

// Blocked reports whether the hard limits alone would block trading,
// ignoring any active override.
func (r *Result) Blocked() bool {
	return len(r.Reasons) > 0
}

// WarningLabels returns the soft warnings as display strings.
func (r *Result) WarningLabels() []string {
	if len(r.SoftWarnings) == 0 {
		return nil
	}
	out := make([]string, len(r.SoftWarnings))
	for i, c := range r.SoftWarnings {
		out[i] = rulebreak.Label(c)
	}
	return out
}

// Evaluator runs the discipline rules against the live journal.
type Evaluator struct {
	store  Store
	loc    *time.Location
	logger zerolog.Logger
}

// NewEvaluator creates an evaluator bound to a store and a local timezone.
// The timezone decides where the trading day boundary falls.
func NewEvaluator(store Store, loc *time.Location, logger zerolog.Logger) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{
		store:  store,
		loc:    loc,
		logger: logger,
	}
}

// Evaluate computes the gate decision for the day containing now. Settings
// are re-read and stats recomputed on every call, so the answer always
// reflects the latest journal state. Storage errors propagate; the gate
// never falls back to a permissive answer when a read fails.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) (*Result, error) {
	settings, err := LoadSettings(ctx, e.store)
	if err != nil {
		return nil, err
	}

	today := daykey.At(now, e.loc)
	stats, err := e.store.GetTradeStatsForDay(ctx, today)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Mode:          settings.Mode,
		Day:           today,
		OverrideUntil: settings.OverrideUntil,
		CooldownUntil: settings.OverrideCooldownUntil,
		Requirements:  Requirements{PlanDone: true, CloseoutDone: true},
		Stats:         *stats,
		Limits: Limits{
			MaxTradesPerDay:      settings.MaxTradesPerDay,
			MaxDailyLossR:        settings.MaxDailyLossR,
			MaxConsecutiveLosses: settings.MaxConsecutiveLosses,
			RequireDailyPlan:     settings.RequireDailyPlan,
			RequireDailyCloseout: settings.RequireDailyCloseout,
		},
		EvaluatedAt: now,
	}

	if settings.Mode != models.ModeReal {
		// Demo mode never blocks and skips the presence checks, so a
		// fresh journal shows no warnings. Stats above are still live.
		result.CanTrade = true
		logging.LogGateDecision(e.logger, string(result.Mode), true, nil, nil)
		return result, nil
	}

	result.OverrideActive = now.Before(settings.OverrideUntil)

	// Soft warnings. The plan is expected for today, the closeout for
	// yesterday: you plan before the session and review after it.
	if settings.RequireDailyPlan {
		planDone, err := e.store.HasDailyPlan(ctx, today)
		if err != nil {
			return nil, err
		}
		result.Requirements.PlanDone = planDone
		if !planDone {
			result.SoftWarnings = append(result.SoftWarnings, rulebreak.PlanMissing)
		}
	}
	if settings.RequireDailyCloseout {
		yesterday, err := daykey.AddDays(today, -1)
		if err != nil {
			return nil, err
		}
		closeoutDone, err := e.store.HasDailyCloseout(ctx, yesterday)
		if err != nil {
			return nil, err
		}
		result.Requirements.CloseoutDone = closeoutDone
		if !closeoutDone {
			result.SoftWarnings = append(result.SoftWarnings, rulebreak.CloseoutMissing)
		}
	}

	// Hard limits, each checked independently. A limit of 0 or less is
	// disabled. The loss limit is inclusive: hitting -maxDailyLossR
	// exactly blocks.
	if settings.MaxTradesPerDay > 0 && stats.TradeCount >= settings.MaxTradesPerDay {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("daily trade limit reached (%d of %d)", stats.TradeCount, settings.MaxTradesPerDay))
		result.BreachCodes = append(result.BreachCodes, rulebreak.MaxTradesHit)
	}
	if settings.MaxDailyLossR > 0 && stats.SumR <= -settings.MaxDailyLossR {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("daily loss limit reached (%.2fR, limit -%.2fR)", stats.SumR, settings.MaxDailyLossR))
		result.BreachCodes = append(result.BreachCodes, rulebreak.MaxDailyLossHit)
	}
	if settings.MaxConsecutiveLosses > 0 && stats.ConsecutiveLosses >= settings.MaxConsecutiveLosses {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("%d consecutive losses (limit %d)", stats.ConsecutiveLosses, settings.MaxConsecutiveLosses))
		result.BreachCodes = append(result.BreachCodes, rulebreak.ConsecLossesHit)
	}

	result.CanTrade = result.OverrideActive || len(result.Reasons) == 0

	warnings := make([]string, 0, len(result.SoftWarnings))
	for _, w := range result.SoftWarnings {
		warnings = append(warnings, string(w))
	}
	logging.LogGateDecision(e.logger, string(result.Mode), result.CanTrade, result.Reasons, warnings)

	return result, nil
}

// SetMode switches the app between demo and real. Override timestamps are
// left untouched: flipping to demo and back does not shorten a cooldown.
func (e *Evaluator) SetMode(ctx context.Context, mode models.Mode) error {
	old, _, err := e.store.GetSetting(ctx, KeyAppMode)
	if err != nil {
		return err
	}
	if err := e.store.SetSetting(ctx, KeyAppMode, string(mode)); err != nil {
		return err
	}
	logging.LogSettingChanged(e.logger, KeyAppMode, old, string(mode))
	return nil
}

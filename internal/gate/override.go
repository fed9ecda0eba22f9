package gate

import (
	"context"
	"time"

	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/logging"
	"tradeguard/internal/models"
)

// Override lifecycle: one hour of bypass per activation, then no
// re-activation for a full day measured from the moment of activation.
const (
	OverrideDuration = time.Hour
	OverrideCooldown = 24 * time.Hour
)

// ActivateOverride turns on the emergency bypass and returns the updated
// evaluation plus whether a new window actually opened. In demo mode it
// fails with ErrOverrideDemoMode: there is nothing to bypass. During a
// cooldown the call is a silent no-op and the current state comes back
// unchanged with activated false.
func (e *Evaluator) ActivateOverride(ctx context.Context, now time.Time) (*Result, bool, error) {
	settings, err := LoadSettings(ctx, e.store)
	if err != nil {
		return nil, false, err
	}

	if settings.Mode != models.ModeReal {
		return nil, false, apperrors.ErrOverrideDemoMode
	}
	if now.Before(settings.OverrideCooldownUntil) {
		result, err := e.Evaluate(ctx, now)
		return result, false, err
	}

	until := now.Add(OverrideDuration)
	cooldown := now.Add(OverrideCooldown)
	if err := e.store.SetSetting(ctx, KeyOverrideUntil, formatEpochMs(until)); err != nil {
		return nil, false, err
	}
	if err := e.store.SetSetting(ctx, KeyOverrideCooldownUntil, formatEpochMs(cooldown)); err != nil {
		return nil, false, err
	}
	logging.LogOverrideActivated(e.logger, until, cooldown)

	result, err := e.Evaluate(ctx, now)
	return result, true, err
}

// ClearOverride ends an active override window early. The cooldown stays
// in place; there is no way to shorten it.
func (e *Evaluator) ClearOverride(ctx context.Context, now time.Time) (*Result, error) {
	if err := e.store.SetSetting(ctx, KeyOverrideUntil, "0"); err != nil {
		return nil, err
	}
	logging.LogOverrideCleared(e.logger)
	return e.Evaluate(ctx, now)
}

// Package gate implements the discipline gate: the rule engine that
// decides, for a given day, whether trading is allowed, which soft warnings
// apply, and how the emergency override interacts with the hard limits.
package gate

import (
	"context"
	"math"
	"strconv"
	"time"

	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/models"
)

// Setting keys stored in the settings table.
const (
	KeyAppMode               = "appMode"
	KeyOverrideUntil         = "gateOverrideUntil"
	KeyOverrideCooldownUntil = "gateOverrideCooldownUntil"
	KeyMaxTradesPerDay       = "maxTradesPerDay"
	KeyMaxDailyLossR         = "maxDailyLossR"
	KeyMaxConsecutiveLosses  = "maxConsecutiveLosses"
	KeyRequireDailyPlan      = "requireDailyPlan"
	KeyRequireDailyCloseout  = "requireDailyCloseout"
)

// Defaults applied when a key is absent or unparseable. A limit of 0 or
// less disables that rule, so malformed values must fall back to these
// explicitly instead of decaying to 0 through a failed parse.
const (
	DefaultMaxTradesPerDay      = 3
	DefaultMaxDailyLossR        = 2.0
	DefaultMaxConsecutiveLosses = 2
)

// Settings is a typed snapshot of the gate's inputs. It is loaded fresh on
// every evaluation; nothing here is cached between calls.
type Settings struct {
	Mode                  models.Mode
	OverrideUntil         time.Time
	OverrideCooldownUntil time.Time
	MaxTradesPerDay       int
	MaxDailyLossR         float64
	MaxConsecutiveLosses  int
	RequireDailyPlan      bool
	RequireDailyCloseout  bool
}

// SettingsReader is the slice of the store the loader needs.
type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// LoadSettings reads a fresh snapshot from the store. Missing keys take the
// documented defaults; malformed values fall back per field.
func LoadSettings(ctx context.Context, r SettingsReader) (*Settings, error) {
	s := &Settings{}

	mode, err := readString(ctx, r, KeyAppMode)
	if err != nil {
		return nil, err
	}
	s.Mode = models.ParseMode(mode)

	if s.OverrideUntil, err = readEpochMs(ctx, r, KeyOverrideUntil); err != nil {
		return nil, err
	}
	if s.OverrideCooldownUntil, err = readEpochMs(ctx, r, KeyOverrideCooldownUntil); err != nil {
		return nil, err
	}
	if s.MaxTradesPerDay, err = readInt(ctx, r, KeyMaxTradesPerDay, DefaultMaxTradesPerDay); err != nil {
		return nil, err
	}
	if s.MaxDailyLossR, err = readFloat(ctx, r, KeyMaxDailyLossR, DefaultMaxDailyLossR); err != nil {
		return nil, err
	}
	if s.MaxConsecutiveLosses, err = readInt(ctx, r, KeyMaxConsecutiveLosses, DefaultMaxConsecutiveLosses); err != nil {
		return nil, err
	}
	if s.RequireDailyPlan, err = readBool(ctx, r, KeyRequireDailyPlan, true); err != nil {
		return nil, err
	}
	if s.RequireDailyCloseout, err = readBool(ctx, r, KeyRequireDailyCloseout, true); err != nil {
		return nil, err
	}

	return s, nil
}

func readString(ctx context.Context, r SettingsReader, key string) (string, error) {
	v, _, err := r.GetSetting(ctx, key)
	return v, err
}

func readInt(ctx context.Context, r SettingsReader, key string, def int) (int, error) {
	raw, ok, err := r.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, perr := strconv.Atoi(raw)
	if perr != nil {
		return def, nil
	}
	return n, nil
}

func readFloat(ctx context.Context, r SettingsReader, key string, def float64) (float64, error) {
	raw, ok, err := r.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	f, perr := strconv.ParseFloat(raw, 64)
	if perr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def, nil
	}
	return f, nil
}

// readBool treats "1" and "true" as true; any other stored value is false.
func readBool(ctx context.Context, r SettingsReader, key string, def bool) (bool, error) {
	raw, ok, err := r.GetSetting(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	return raw == "1" || raw == "true", nil
}

// readEpochMs parses an epoch-millisecond string. Zero, negative and
// malformed values read as the zero time, which is always in the past.
func readEpochMs(ctx context.Context, r SettingsReader, key string) (time.Time, error) {
	raw, ok, err := r.GetSetting(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	ms, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil || ms <= 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

// formatEpochMs renders a timestamp in the settings-table form.
func formatEpochMs(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// knownKeys maps every editable setting to a short description used by the
// admin surface.
var knownKeys = map[string]string{
	KeyAppMode:               "demo bypasses the gate; real enforces it",
	KeyOverrideUntil:         "epoch ms; override active while now is before this",
	KeyOverrideCooldownUntil: "epoch ms; activation blocked while now is before this",
	KeyMaxTradesPerDay:       "0 or less disables this rule",
	KeyMaxDailyLossR:         "0 or less disables this rule",
	KeyMaxConsecutiveLosses:  "0 or less disables this rule",
	KeyRequireDailyPlan:      "1/true surfaces a warning when today's plan is missing",
	KeyRequireDailyCloseout:  "1/true surfaces a warning when yesterday's closeout is missing",
}

// SettingKeys returns the editable keys in display order.
func SettingKeys() []string {
	return []string{
		KeyAppMode,
		KeyMaxTradesPerDay,
		KeyMaxDailyLossR,
		KeyMaxConsecutiveLosses,
		KeyRequireDailyPlan,
		KeyRequireDailyCloseout,
		KeyOverrideUntil,
		KeyOverrideCooldownUntil,
	}
}

// DescribeKey returns the admin description for a setting key.
func DescribeKey(key string) string {
	return knownKeys[key]
}

// KnownKey reports whether key is an editable gate setting.
func KnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// ValidateSettingValue rejects writes that could not round-trip through
// the loader. The loader itself tolerates garbage, but the admin surface
// should refuse to store it in the first place.
func ValidateSettingValue(key, value string) error {
	switch key {
	case KeyAppMode:
		if value != string(models.ModeDemo) && value != string(models.ModeReal) {
			return apperrors.NewValidationError(key, value, "must be demo or real")
		}
	case KeyMaxTradesPerDay, KeyMaxConsecutiveLosses:
		if _, err := strconv.Atoi(value); err != nil {
			return apperrors.NewValidationError(key, value, "must be an integer")
		}
	case KeyMaxDailyLossR:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return apperrors.NewValidationError(key, value, "must be a finite number")
		}
	case KeyRequireDailyPlan, KeyRequireDailyCloseout:
		switch value {
		case "0", "1", "true", "false":
		default:
			return apperrors.NewValidationError(key, value, "must be 1, 0, true or false")
		}
	case KeyOverrideUntil, KeyOverrideCooldownUntil:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return apperrors.NewValidationError(key, value, "must be epoch milliseconds")
		}
	default:
		return apperrors.NewValidationError(key, value, "unknown setting")
	}
	return nil
}

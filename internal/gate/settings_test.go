package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeguard/internal/gate"
	"tradeguard/internal/models"
)

// mapReader serves settings from a plain map. Absent keys report ok=false.
type mapReader map[string]string

func (m mapReader) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func TestLoadSettings_EmptyStoreDefaults(t *testing.T) {
	s, err := gate.LoadSettings(context.Background(), mapReader{})
	require.NoError(t, err)

	assert.Equal(t, models.ModeDemo, s.Mode)
	assert.True(t, s.OverrideUntil.IsZero())
	assert.True(t, s.OverrideCooldownUntil.IsZero())
	assert.Equal(t, gate.DefaultMaxTradesPerDay, s.MaxTradesPerDay)
	assert.InDelta(t, gate.DefaultMaxDailyLossR, s.MaxDailyLossR, 1e-9)
	assert.Equal(t, gate.DefaultMaxConsecutiveLosses, s.MaxConsecutiveLosses)
	assert.True(t, s.RequireDailyPlan)
	assert.True(t, s.RequireDailyCloseout)
}

func TestLoadSettings_ModeParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Mode
	}{
		{"real", models.ModeReal},
		{"demo", models.ModeDemo},
		{"REAL", models.ModeDemo},
		{"Real", models.ModeDemo},
		{" real", models.ModeDemo},
		{"live", models.ModeDemo},
		{"", models.ModeDemo},
	}
	for _, tt := range tests {
		s, err := gate.LoadSettings(context.Background(), mapReader{gate.KeyAppMode: tt.raw})
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Mode, "appMode=%q", tt.raw)
	}
}

func TestLoadSettings_MalformedValuesFallBack(t *testing.T) {
	s, err := gate.LoadSettings(context.Background(), mapReader{
		gate.KeyMaxTradesPerDay:      "abc",
		gate.KeyMaxDailyLossR:        "NaN",
		gate.KeyMaxConsecutiveLosses: "2.5",
		gate.KeyOverrideUntil:        "not-a-number",
	})
	require.NoError(t, err)

	// Malformed values take the documented defaults, never a zero that
	// would silently disable a rule.
	assert.Equal(t, gate.DefaultMaxTradesPerDay, s.MaxTradesPerDay)
	assert.InDelta(t, gate.DefaultMaxDailyLossR, s.MaxDailyLossR, 1e-9)
	assert.Equal(t, gate.DefaultMaxConsecutiveLosses, s.MaxConsecutiveLosses)
	assert.True(t, s.OverrideUntil.IsZero())
}

func TestLoadSettings_InfinityRejected(t *testing.T) {
	s, err := gate.LoadSettings(context.Background(), mapReader{
		gate.KeyMaxDailyLossR: "+Inf",
	})
	require.NoError(t, err)
	assert.InDelta(t, gate.DefaultMaxDailyLossR, s.MaxDailyLossR, 1e-9)
}

func TestLoadSettings_ExplicitValues(t *testing.T) {
	s, err := gate.LoadSettings(context.Background(), mapReader{
		gate.KeyAppMode:              "real",
		gate.KeyMaxTradesPerDay:      "5",
		gate.KeyMaxDailyLossR:        "3.5",
		gate.KeyMaxConsecutiveLosses: "0",
		gate.KeyRequireDailyPlan:     "0",
		gate.KeyRequireDailyCloseout: "true",
		gate.KeyOverrideUntil:        "1741608000000",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeReal, s.Mode)
	assert.Equal(t, 5, s.MaxTradesPerDay)
	assert.InDelta(t, 3.5, s.MaxDailyLossR, 1e-9)
	assert.Equal(t, 0, s.MaxConsecutiveLosses)
	assert.False(t, s.RequireDailyPlan)
	assert.True(t, s.RequireDailyCloseout)
	assert.Equal(t, time.UnixMilli(1741608000000).UTC(), s.OverrideUntil)
}

func TestLoadSettings_BoolSpellings(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"0", false},
		{"false", false},
		{"yes", false},
		{"TRUE", false},
		{"", false},
	}
	for _, tt := range tests {
		s, err := gate.LoadSettings(context.Background(), mapReader{gate.KeyRequireDailyPlan: tt.raw})
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.RequireDailyPlan, "requireDailyPlan=%q", tt.raw)
	}
}

func TestSettingKeys_AllKnown(t *testing.T) {
	keys := gate.SettingKeys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, gate.KnownKey(k), "key %s", k)
		assert.NotEmpty(t, gate.DescribeKey(k), "key %s", k)
	}
	assert.False(t, gate.KnownKey("noSuchSetting"))
}

func TestValidateSettingValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		ok    bool
	}{
		{gate.KeyAppMode, "real", true},
		{gate.KeyAppMode, "demo", true},
		{gate.KeyAppMode, "rael", false},
		{gate.KeyMaxTradesPerDay, "5", true},
		{gate.KeyMaxTradesPerDay, "five", false},
		{gate.KeyMaxDailyLossR, "2.5", true},
		{gate.KeyMaxDailyLossR, "NaN", false},
		{gate.KeyMaxDailyLossR, "+Inf", false},
		{gate.KeyMaxConsecutiveLosses, "0", true},
		{gate.KeyRequireDailyPlan, "1", true},
		{gate.KeyRequireDailyPlan, "yes", false},
		{gate.KeyOverrideUntil, "1741608000000", true},
		{gate.KeyOverrideUntil, "tomorrow", false},
		{"noSuchSetting", "1", false},
	}
	for _, tt := range tests {
		err := gate.ValidateSettingValue(tt.key, tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s=%s", tt.key, tt.value)
		} else {
			assert.Error(t, err, "%s=%s", tt.key, tt.value)
		}
	}
}

func TestLoadSettings_NegativeEpochReadsAsZero(t *testing.T) {
	s, err := gate.LoadSettings(context.Background(), mapReader{
		gate.KeyOverrideUntil:         "-5",
		gate.KeyOverrideCooldownUntil: "0",
	})
	require.NoError(t, err)
	assert.True(t, s.OverrideUntil.IsZero())
	assert.True(t, s.OverrideCooldownUntil.IsZero())
}

package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompensationSettingsDefaults(t *testing.T) {
	s, err := ParseCompensationSettings(nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), s.Version)
	assert.Equal(t, 5, s.ReferralMaxLevel)
	assert.True(t, s.ReferralPercentage(2).Equal(decimal.NewFromInt(5)))
	assert.True(t, s.ReferralPercentage(1).IsZero())
	assert.False(t, s.LeadershipEnabled)
	assert.Equal(t, MaxLeadershipLevels, s.EffectiveLeadershipLevels())
}

func TestParseCompensationSettingsOverrides(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	rows := []Setting{
		{Key: ReferralLevelKey(2), Value: "7.5", UpdatedAt: older},
		{Key: SettingLeadershipEnabled, Value: "true", UpdatedAt: newer},
		{Key: SettingLeadershipMaxLevels, Value: "9", UpdatedAt: older},
		{Key: LeadershipLevelKey(1), Value: "12", UpdatedAt: older},
		{Key: SettingDirectPackageQuota, Value: "250.50", UpdatedAt: older},
		{Key: SettingMinDirectCount, Value: "3", UpdatedAt: older},
		{Key: "site_title", Value: "ignored", UpdatedAt: older},
	}

	s, err := ParseCompensationSettings(rows)
	require.NoError(t, err)

	assert.Equal(t, newer.UnixNano(), s.Version)
	assert.True(t, s.ReferralPercentage(2).Equal(decimal.RequireFromString("7.5")))
	assert.True(t, s.LeadershipEnabled)
	assert.Equal(t, 9, s.LeadershipMaxLevels)
	assert.Equal(t, MaxLeadershipLevels, s.EffectiveLeadershipLevels(), "leadership depth is hard-capped")
	assert.True(t, s.LeadershipPercentage(1).Equal(decimal.NewFromInt(12)))
	assert.True(t, s.DirectPackageQuota.Equal(decimal.RequireFromString("250.5")))
	assert.Equal(t, 3, s.MinDirectCount)
}

func TestParseCompensationSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		row  Setting
	}{
		{name: "non numeric percentage", row: Setting{Key: ReferralLevelKey(3), Value: "abc"}},
		{name: "negative percentage", row: Setting{Key: LeadershipLevelKey(2), Value: "-1"}},
		{name: "bad level suffix", row: Setting{Key: "referral_percentage_level_x", Value: "1"}},
		{name: "zero bonus months", row: Setting{Key: SettingBonusMonths, Value: "0"}},
		{name: "bad bool", row: Setting{Key: SettingLeadershipEnabled, Value: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCompensationSettings([]Setting{tt.row})
			assert.Error(t, err)
		})
	}
}

func TestCompensationSettingsRoundTripThroughSettingValues(t *testing.T) {
	original := DefaultCompensationSettings()
	original.LeadershipEnabled = true
	original.MinDirectCount = 4

	rows := make([]Setting, 0)
	for key, value := range original.ToSettingValues() {
		rows = append(rows, Setting{Key: key, Value: value, Type: SettingType(key)})
	}

	parsed, err := ParseCompensationSettings(rows)
	require.NoError(t, err)
	assert.True(t, parsed.LeadershipEnabled)
	assert.Equal(t, 4, parsed.MinDirectCount)
	assert.Equal(t, len(original.ReferralPercentages), len(parsed.ReferralPercentages))
}

func TestSettingType(t *testing.T) {
	assert.Equal(t, "boolean", SettingType(SettingLeadershipEnabled))
	assert.Equal(t, "integer", SettingType(SettingBonusMonths))
	assert.Equal(t, "decimal", SettingType(ReferralLevelKey(4)))
	assert.Equal(t, "string", SettingType("unknown"))
}

func TestPercentRoundsToMoneyScale(t *testing.T) {
	got := Percent(decimal.RequireFromString("33.33"), decimal.RequireFromString("3"))
	assert.Equal(t, "1", got.String())

	got = Percent(decimal.NewFromInt(100), decimal.NewFromInt(5))
	assert.True(t, got.Equal(decimal.NewFromInt(5)))
}

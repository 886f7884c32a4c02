package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer, decimal
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxLeadershipLevels caps the leadership walk regardless of configuration.
const MaxLeadershipLevels = 5

// Setting keys
const (
	SettingReferralMaxLevel       = "referral_max_level"
	SettingMonthlyBonusPercentage = "monthly_bonus_percentage"
	SettingBonusMonths            = "bonus_months"
	SettingLeadershipEnabled      = "leadership_enabled"
	SettingLeadershipMaxLevels    = "leadership_max_levels"
	SettingDirectPackageQuota     = "direct_package_quota"
	SettingMinDirectCount         = "min_direct_count"

	settingReferralLevelPrefix   = "referral_percentage_level_"
	settingLeadershipLevelPrefix = "leadership_percentage_level_"
)

// ReferralLevelKey returns the settings key of a referral level percentage.
func ReferralLevelKey(level int) string {
	return settingReferralLevelPrefix + strconv.Itoa(level)
}

// LeadershipLevelKey returns the settings key of a leadership level percentage.
func LeadershipLevelKey(level int) string {
	return settingLeadershipLevelPrefix + strconv.Itoa(level)
}

// CompensationSettings is an immutable snapshot of the admin-tunable plan configuration.
// It is loaded once per batch invocation and passed explicitly to every calculation.
type CompensationSettings struct {
	Version                int64                   `json:"version"`
	ReferralPercentages    map[int]decimal.Decimal `json:"referral_percentages"`
	ReferralMaxLevel       int                     `json:"referral_max_level" validate:"min=2,max=10"`
	MonthlyBonusPercentage decimal.Decimal         `json:"monthly_bonus_percentage"`
	BonusMonths            int                     `json:"bonus_months" validate:"min=1,max=600"`
	LeadershipEnabled      bool                    `json:"leadership_enabled"`
	LeadershipPercentages  map[int]decimal.Decimal `json:"leadership_percentages"`
	LeadershipMaxLevels    int                     `json:"leadership_max_levels" validate:"min=0"`
	DirectPackageQuota     decimal.Decimal         `json:"direct_package_quota"`
	MinDirectCount         int                     `json:"min_direct_count" validate:"min=0"`
}

// DefaultCompensationSettings returns the plan used when the settings table is empty.
func DefaultCompensationSettings() *CompensationSettings {
	return &CompensationSettings{
		ReferralPercentages: map[int]decimal.Decimal{
			2: decimal.NewFromInt(5),
			3: decimal.NewFromInt(3),
			4: decimal.NewFromInt(2),
			5: decimal.NewFromInt(1),
		},
		ReferralMaxLevel:       5,
		MonthlyBonusPercentage: decimal.NewFromInt(5),
		BonusMonths:            12,
		LeadershipEnabled:      false,
		LeadershipPercentages: map[int]decimal.Decimal{
			1: decimal.NewFromInt(10),
			2: decimal.NewFromInt(5),
			3: decimal.NewFromInt(3),
			4: decimal.NewFromInt(2),
			5: decimal.NewFromInt(1),
		},
		LeadershipMaxLevels: MaxLeadershipLevels,
		DirectPackageQuota:  decimal.NewFromInt(1000),
		MinDirectCount:      2,
	}
}

// ParseCompensationSettings applies setting rows on top of the defaults. Unknown keys are ignored.
func ParseCompensationSettings(rows []Setting) (*CompensationSettings, error) {
	s := DefaultCompensationSettings()

	for _, row := range rows {
		if ts := row.UpdatedAt.UnixNano(); !row.UpdatedAt.IsZero() && ts > s.Version {
			s.Version = ts
		}

		key := strings.TrimSpace(row.Key)
		value := strings.TrimSpace(row.Value)
		var err error

		switch {
		case key == SettingReferralMaxLevel:
			s.ReferralMaxLevel, err = strconv.Atoi(value)
		case key == SettingMonthlyBonusPercentage:
			s.MonthlyBonusPercentage, err = decimal.NewFromString(value)
		case key == SettingBonusMonths:
			s.BonusMonths, err = strconv.Atoi(value)
		case key == SettingLeadershipEnabled:
			s.LeadershipEnabled, err = strconv.ParseBool(value)
		case key == SettingLeadershipMaxLevels:
			s.LeadershipMaxLevels, err = strconv.Atoi(value)
		case key == SettingDirectPackageQuota:
			s.DirectPackageQuota, err = decimal.NewFromString(value)
		case key == SettingMinDirectCount:
			s.MinDirectCount, err = strconv.Atoi(value)
		case strings.HasPrefix(key, settingReferralLevelPrefix):
			err = parseLevelPercentage(s.ReferralPercentages, strings.TrimPrefix(key, settingReferralLevelPrefix), value)
		case strings.HasPrefix(key, settingLeadershipLevelPrefix):
			err = parseLevelPercentage(s.LeadershipPercentages, strings.TrimPrefix(key, settingLeadershipLevelPrefix), value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid setting %s=%q: %w", key, value, err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return s, nil
}

func parseLevelPercentage(target map[int]decimal.Decimal, rawLevel, value string) error {
	level, err := strconv.Atoi(rawLevel)
	if err != nil || level < 1 {
		return fmt.Errorf("bad level %q", rawLevel)
	}
	pct, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	target[level] = pct
	return nil
}

// Validate validates the settings
func (s *CompensationSettings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.MonthlyBonusPercentage.IsNegative() {
		return fmt.Errorf("%s must not be negative", SettingMonthlyBonusPercentage)
	}
	if s.DirectPackageQuota.IsNegative() {
		return fmt.Errorf("%s must not be negative", SettingDirectPackageQuota)
	}
	for level, pct := range s.ReferralPercentages {
		if pct.IsNegative() {
			return fmt.Errorf("%s must not be negative", ReferralLevelKey(level))
		}
	}
	for level, pct := range s.LeadershipPercentages {
		if pct.IsNegative() {
			return fmt.Errorf("%s must not be negative", LeadershipLevelKey(level))
		}
	}
	return nil
}

// ReferralPercentage returns the percentage paid at a referral level, zero when unset.
func (s *CompensationSettings) ReferralPercentage(level int) decimal.Decimal {
	return s.ReferralPercentages[level]
}

// LeadershipPercentage returns the override percentage of a leadership level, zero when unset.
func (s *CompensationSettings) LeadershipPercentage(level int) decimal.Decimal {
	return s.LeadershipPercentages[level]
}

// EffectiveLeadershipLevels is the configured leadership depth, hard-capped at MaxLeadershipLevels.
func (s *CompensationSettings) EffectiveLeadershipLevels() int {
	if s.LeadershipMaxLevels > MaxLeadershipLevels {
		return MaxLeadershipLevels
	}
	if s.LeadershipMaxLevels < 0 {
		return 0
	}
	return s.LeadershipMaxLevels
}

// ToSettingValues flattens the snapshot into settings table key/value pairs.
func (s *CompensationSettings) ToSettingValues() map[string]string {
	values := map[string]string{
		SettingReferralMaxLevel:       strconv.Itoa(s.ReferralMaxLevel),
		SettingMonthlyBonusPercentage: s.MonthlyBonusPercentage.String(),
		SettingBonusMonths:            strconv.Itoa(s.BonusMonths),
		SettingLeadershipEnabled:      strconv.FormatBool(s.LeadershipEnabled),
		SettingLeadershipMaxLevels:    strconv.Itoa(s.LeadershipMaxLevels),
		SettingDirectPackageQuota:     s.DirectPackageQuota.String(),
		SettingMinDirectCount:         strconv.Itoa(s.MinDirectCount),
	}
	for _, level := range sortedLevels(s.ReferralPercentages) {
		values[ReferralLevelKey(level)] = s.ReferralPercentages[level].String()
	}
	for _, level := range sortedLevels(s.LeadershipPercentages) {
		values[LeadershipLevelKey(level)] = s.LeadershipPercentages[level].String()
	}
	return values
}

// SettingType returns the type column value of a settings key
func SettingType(key string) string {
	switch {
	case key == SettingLeadershipEnabled:
		return "boolean"
	case key == SettingReferralMaxLevel, key == SettingBonusMonths,
		key == SettingLeadershipMaxLevels, key == SettingMinDirectCount:
		return "integer"
	case key == SettingMonthlyBonusPercentage, key == SettingDirectPackageQuota,
		strings.HasPrefix(key, settingReferralLevelPrefix), strings.HasPrefix(key, settingLeadershipLevelPrefix):
		return "decimal"
	default:
		return "string"
	}
}

// IsCompensationKey reports whether key is read by ParseCompensationSettings.
func IsCompensationKey(key string) bool {
	return SettingType(key) != "string"
}

// ToJSON converts settings to JSON
func (s *CompensationSettings) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func sortedLevels(m map[int]decimal.Decimal) []int {
	levels := make([]int, 0, len(m))
	for level := range m {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

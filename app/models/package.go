package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PackageModeMonthly = "monthly"
	PackageModeDaily   = "daily"
)

// Package is an immutable catalog template. TargetValue and DailyPercentage only apply
// to daily packages; monthly packages use the global monthly settings.
type Package struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(150);not null" json:"name"`
	Price           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	Mode            string          `gorm:"type:varchar(16);not null;index" json:"mode"`
	MaturityPeriod  int             `gorm:"not null;default:0" json:"maturity_period"`
	TargetValue     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"target_value"`
	DailyPercentage decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"daily_percentage"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// IsDaily reports whether the package pays target-capped daily accruals.
func (p *Package) IsDaily() bool {
	return p.Mode == PackageModeDaily
}

// DailyAmount is the full, uncapped daily accrual of the package.
func (p *Package) DailyAmount() decimal.Decimal {
	return Percent(p.Price, p.DailyPercentage)
}

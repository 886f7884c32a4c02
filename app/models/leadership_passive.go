package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeadershipPassive is one override posting of a leadership period.
type LeadershipPassive struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SponsorID     uint            `gorm:"not null;index:ux_leadership_passive_key,unique,priority:1" json:"sponsor_id"`
	BeneficiaryID uint            `gorm:"not null;index:ux_leadership_passive_key,unique,priority:2;index:idx_leadership_passive_cycle_beneficiary,priority:2" json:"beneficiary_id"`
	Level         int             `gorm:"not null;index:ux_leadership_passive_key,unique,priority:3" json:"level"`
	MonthCycle    string          `gorm:"type:char(10);not null;index:ux_leadership_passive_key,unique,priority:4;index:idx_leadership_passive_cycle_beneficiary,priority:1" json:"month_cycle"`
	Percentage    decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"percentage"`
	PeriodTotal   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"period_total"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	TransactionID uint            `gorm:"not null" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LeadershipPassive) TableName() string {
	return "leadership_passive"
}

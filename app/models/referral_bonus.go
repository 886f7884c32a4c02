package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RegimeFlat   = "flat"
	RegimeCapped = "capped"
)

// ReferralBonus is a purchase-triggered commission paid to SponsorID for a purchase
// made by BeneficiaryID.
type ReferralBonus struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SponsorID     uint            `gorm:"not null;index" json:"sponsor_id"`
	BeneficiaryID uint            `gorm:"not null;index" json:"beneficiary_id"`
	UserPackageID uint            `gorm:"not null;index" json:"user_package_id"`
	Level         int             `gorm:"not null" json:"level"`
	Percentage    decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"percentage"`
	Regime        string          `gorm:"type:varchar(16);not null" json:"regime"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	TransactionID uint            `gorm:"not null" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (ReferralBonus) TableName() string {
	return "referral_bonuses"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusWallet records one maturity accrual. (UserPackageID, Cycle) is unique so a
// cycle can never be paid twice.
type BonusWallet struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index:idx_bonus_wallet_user_mode,priority:1" json:"user_id"`
	UserPackageID uint            `gorm:"not null;index:ux_bonus_wallet_package_cycle,unique,priority:1" json:"user_package_id"`
	Cycle         int             `gorm:"not null;index:ux_bonus_wallet_package_cycle,unique,priority:2" json:"cycle"`
	Mode          string          `gorm:"type:varchar(16);not null;index:idx_bonus_wallet_user_mode,priority:2" json:"mode"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	TransactionID uint            `gorm:"not null" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BonusWallet) TableName() string {
	return "bonus_wallet"
}

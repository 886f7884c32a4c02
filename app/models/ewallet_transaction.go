package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry kinds.
const (
	TxTypePurchase         = "purchase"
	TxTypeBonus            = "bonus"
	TxTypeReferral         = "referral"
	TxTypeLeadership       = "leadership"
	TxTypeRefund           = "refund"
	TxTypeRetain           = "retain"
	TxTypeTransfer         = "transfer"
	TxTypeTransferCharge   = "transfer_charge"
	TxTypeWithdrawalCharge = "withdrawal_charge"
	TxTypeDeposit          = "deposit"
	TxTypeWithdrawal       = "withdrawal"
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
)

// EwalletTransaction is an immutable ledger entry. Amount is signed.
type EwalletTransaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index:idx_ewallet_tx_user_type,priority:1" json:"user_id"`
	Type           string          `gorm:"type:varchar(32);not null;index:idx_ewallet_tx_user_type,priority:2" json:"type"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Description    string          `gorm:"type:varchar(255);default:''" json:"description"`
	Status         string          `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	IsWithdrawable bool            `gorm:"not null;default:true" json:"is_withdrawable"`
	ReferenceID    *uint           `gorm:"index" json:"reference_id,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (EwalletTransaction) TableName() string {
	return "ewallet_transactions"
}

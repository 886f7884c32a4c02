package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BatchKindDailyAccruals   = "daily_accruals"
	BatchKindMonthlyAccruals = "monthly_accruals"
	BatchKindLeadership      = "leadership"
	BatchKindPurchase        = "purchase"
)

// BatchRun is the audit record of one batch trigger invocation.
type BatchRun struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RunID      string         `gorm:"type:char(36);not null;uniqueIndex" json:"run_id"`
	Kind       string         `gorm:"type:varchar(32);not null;index" json:"kind"`
	Scope      string         `gorm:"type:varchar(100);default:''" json:"scope"`
	DryRun     bool           `gorm:"not null;default:false" json:"dry_run"`
	Succeeded  int            `gorm:"not null;default:0" json:"succeeded"`
	Failed     int            `gorm:"not null;default:0" json:"failed"`
	Skipped    int            `gorm:"not null;default:0" json:"skipped"`
	Report     datatypes.JSON `json:"report"`
	StartedAt  time.Time      `gorm:"type:timestamp" json:"started_at"`
	FinishedAt time.Time      `gorm:"type:timestamp" json:"finished_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

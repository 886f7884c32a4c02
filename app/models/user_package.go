package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserPackageStatusActive    = "active"
	UserPackageStatusCompleted = "completed"
	UserPackageStatusWithdrawn = "withdrawn"
)

// UserPackage is one purchased subscription instance and its accrual progress.
type UserPackage struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index:idx_user_packages_user_status,priority:1" json:"user_id"`
	PackageID     uint            `gorm:"not null;index" json:"package_id"`
	Package       Package         `gorm:"foreignKey:PackageID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"package"`
	Price         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	CurrentCycle  int             `gorm:"not null;default:1" json:"current_cycle"`
	TotalCycles   int             `gorm:"not null;default:0" json:"total_cycles"`
	NextBonusDate *time.Time      `gorm:"type:timestamp;default:null;index" json:"next_bonus_date,omitempty"`
	Status        string          `gorm:"type:varchar(16);not null;default:'active';index:idx_user_packages_user_status,priority:2" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the package still accrues.
func (up *UserPackage) IsActive() bool {
	return up.Status == UserPackageStatusActive
}

// IsDaily reports whether the referenced catalog package is a daily package.
func (up *UserPackage) IsDaily() bool {
	return up.Package.IsDaily()
}

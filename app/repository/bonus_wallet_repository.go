package repository

import (
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type bonusWalletRepository struct {
	db *gorm.DB
}

// NewBonusWalletRepository creates a new accrual repository instance
func NewBonusWalletRepository(db *gorm.DB) BonusWalletRepository {
	return &bonusWalletRepository{db: db}
}

func (r *bonusWalletRepository) Create(entry *models.BonusWallet) error {
	return r.db.Create(entry).Error
}

func (r *bonusWalletRepository) SumByUserAndMode(userID uint, mode string) (decimal.Decimal, error) {
	return sumAmount(r.db.Model(&models.BonusWallet{}).Where("user_id = ? AND mode = ?", userID, mode))
}

func (r *bonusWalletRepository) ExistsForPackageSince(userPackageID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.BonusWallet{}).
		Where("user_package_id = ? AND created_at >= ?", userPackageID, since).
		Count(&count).Error
	return count > 0, err
}

func (r *bonusWalletRepository) TotalsBetween(from, to time.Time, userID uint) ([]BeneficiaryTotal, error) {
	var totals []BeneficiaryTotal
	q := r.db.Model(&models.BonusWallet{}).
		Select("user_id, SUM(amount) AS total").
		Where("created_at >= ? AND created_at < ?", from, to)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Group("user_id").Order("user_id ASC").Scan(&totals).Error
	return totals, err
}

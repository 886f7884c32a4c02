package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"gorm.io/gorm"
)

type referralBonusRepository struct {
	db *gorm.DB
}

// NewReferralBonusRepository creates a new referral commission repository instance
func NewReferralBonusRepository(db *gorm.DB) ReferralBonusRepository {
	return &referralBonusRepository{db: db}
}

func (r *referralBonusRepository) Create(bonus *models.ReferralBonus) error {
	return r.db.Create(bonus).Error
}

func (r *referralBonusRepository) ListByUserPackage(userPackageID uint) ([]models.ReferralBonus, error) {
	var bonuses []models.ReferralBonus
	err := r.db.Where("user_package_id = ?", userPackageID).Order("level ASC").Find(&bonuses).Error
	return bonuses, err
}

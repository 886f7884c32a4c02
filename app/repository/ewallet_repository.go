package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ewalletRepository struct {
	db *gorm.DB
}

// NewEwalletRepository creates a new balance repository instance
func NewEwalletRepository(db *gorm.DB) EwalletRepository {
	return &ewalletRepository{db: db}
}

func (r *ewalletRepository) Create(wallet *models.Ewallet) error {
	return r.db.Create(wallet).Error
}

func (r *ewalletRepository) GetByUserID(userID uint) (*models.Ewallet, error) {
	var wallet models.Ewallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, mapErr(err)
	}
	return &wallet, nil
}

// GetByUserIDForUpdate issues SELECT ... FOR UPDATE so concurrent postings on the
// same account serialize on the row.
func (r *ewalletRepository) GetByUserIDForUpdate(userID uint) (*models.Ewallet, error) {
	var wallet models.Ewallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &wallet, nil
}

func (r *ewalletRepository) UpdateBalance(id uint, balance decimal.Decimal) error {
	return r.db.Model(&models.Ewallet{}).Where("id = ?", id).Update("balance", balance).Error
}

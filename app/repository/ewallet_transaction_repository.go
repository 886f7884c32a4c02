package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ewalletTransactionRepository struct {
	db *gorm.DB
}

// NewEwalletTransactionRepository creates a new ledger entry repository instance
func NewEwalletTransactionRepository(db *gorm.DB) EwalletTransactionRepository {
	return &ewalletTransactionRepository{db: db}
}

func (r *ewalletTransactionRepository) Create(entry *models.EwalletTransaction) error {
	return r.db.Create(entry).Error
}

func (r *ewalletTransactionRepository) ListByUser(userID uint) ([]models.EwalletTransaction, error) {
	var entries []models.EwalletTransaction
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error
	return entries, err
}

func (r *ewalletTransactionRepository) SumByUser(userID uint) (decimal.Decimal, error) {
	return sumAmount(r.db.Model(&models.EwalletTransaction{}).Where("user_id = ?", userID))
}

func (r *ewalletTransactionRepository) SumWithdrawableByUser(userID uint) (decimal.Decimal, error) {
	return sumAmount(r.db.Model(&models.EwalletTransaction{}).
		Where("user_id = ? AND is_withdrawable = ?", userID, true))
}

func (r *ewalletTransactionRepository) SumCompletedByUserAndType(userID uint, txType string) (decimal.Decimal, error) {
	return sumAmount(r.db.Model(&models.EwalletTransaction{}).
		Where("user_id = ? AND type = ? AND status = ?", userID, txType, models.TxStatusCompleted))
}

// sumAmount returns SUM(amount) of the scoped query, zero for an empty set.
func sumAmount(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(amount), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

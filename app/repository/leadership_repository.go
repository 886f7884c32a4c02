package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"gorm.io/gorm"
)

type leadershipRepository struct {
	db *gorm.DB
}

// NewLeadershipRepository creates a new leadership override repository instance
func NewLeadershipRepository(db *gorm.DB) LeadershipRepository {
	return &leadershipRepository{db: db}
}

func (r *leadershipRepository) Create(entry *models.LeadershipPassive) error {
	return r.db.Create(entry).Error
}

func (r *leadershipRepository) ListByPeriod(monthCycle string, beneficiaryID uint) ([]models.LeadershipPassive, error) {
	var entries []models.LeadershipPassive
	q := r.db.Where("month_cycle = ?", monthCycle)
	if beneficiaryID != 0 {
		q = q.Where("beneficiary_id = ?", beneficiaryID)
	}
	err := q.Order("beneficiary_id ASC, level ASC").Find(&entries).Error
	return entries, err
}

func (r *leadershipRepository) Delete(id uint) error {
	return r.db.Delete(&models.LeadershipPassive{}, id).Error
}

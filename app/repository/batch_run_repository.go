package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"gorm.io/gorm"
)

type batchRunRepository struct {
	db *gorm.DB
}

// NewBatchRunRepository creates a new batch audit repository instance
func NewBatchRunRepository(db *gorm.DB) BatchRunRepository {
	return &batchRunRepository{db: db}
}

func (r *batchRunRepository) Create(run *models.BatchRun) error {
	return r.db.Create(run).Error
}

func (r *batchRunRepository) GetByRunID(runID string) (*models.BatchRun, error) {
	var run models.BatchRun
	if err := r.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, mapErr(err)
	}
	return &run, nil
}

func (r *batchRunRepository) ListRecent(limit int) ([]models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.BatchRun
	err := r.db.Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

package repository

import (
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userPackageRepository implements the UserPackageRepository interface
type userPackageRepository struct {
	db *gorm.DB
}

// NewUserPackageRepository creates a new user package repository instance
func NewUserPackageRepository(db *gorm.DB) UserPackageRepository {
	return &userPackageRepository{db: db}
}

// Create stores a new purchased package
func (r *userPackageRepository) Create(up *models.UserPackage) error {
	return r.db.Omit("Package").Create(up).Error
}

// GetByID retrieves a purchased package with its catalog entry
func (r *userPackageRepository) GetByID(id uint) (*models.UserPackage, error) {
	var up models.UserPackage
	if err := r.db.Preload("Package").First(&up, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &up, nil
}

// GetByIDForUpdate retrieves a purchased package and locks its row
func (r *userPackageRepository) GetByIDForUpdate(id uint) (*models.UserPackage, error) {
	var up models.UserPackage
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Package").
		First(&up, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &up, nil
}

// Update persists the cycle state of a purchased package
func (r *userPackageRepository) Update(up *models.UserPackage) error {
	return r.db.Model(&models.UserPackage{}).
		Where("id = ?", up.ID).
		Updates(map[string]interface{}{
			"current_cycle":   up.CurrentCycle,
			"total_cycles":    up.TotalCycles,
			"next_bonus_date": up.NextBonusDate,
			"status":          up.Status,
		}).Error
}

// ListByUser returns all packages of a user regardless of status
func (r *userPackageRepository) ListByUser(userID uint) ([]models.UserPackage, error) {
	var ups []models.UserPackage
	err := r.db.Preload("Package").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&ups).Error
	return ups, err
}

// ListActiveDaily returns active daily packages, optionally for one user
func (r *userPackageRepository) ListActiveDaily(userID uint) ([]models.UserPackage, error) {
	var ups []models.UserPackage
	q := r.db.Preload("Package").
		Joins("JOIN packages ON packages.id = user_packages.package_id").
		Where("user_packages.status = ? AND packages.mode = ?", models.UserPackageStatusActive, models.PackageModeDaily)
	if userID != 0 {
		q = q.Where("user_packages.user_id = ?", userID)
	}
	err := q.Order("user_packages.user_id ASC, user_packages.id ASC").Find(&ups).Error
	return ups, err
}

// ListDueMonthly returns active monthly packages that are due at now
func (r *userPackageRepository) ListDueMonthly(now time.Time, userID uint) ([]models.UserPackage, error) {
	var ups []models.UserPackage
	q := r.db.Preload("Package").
		Joins("JOIN packages ON packages.id = user_packages.package_id").
		Where("user_packages.status = ? AND packages.mode = ?", models.UserPackageStatusActive, models.PackageModeMonthly).
		Where("user_packages.next_bonus_date IS NULL OR user_packages.next_bonus_date <= ?", now)
	if userID != 0 {
		q = q.Where("user_packages.user_id = ?", userID)
	}
	err := q.Order("user_packages.id ASC").Find(&ups).Error
	return ups, err
}

// ListActiveByUsers returns the active packages held by any of the given users
func (r *userPackageRepository) ListActiveByUsers(userIDs []uint) ([]models.UserPackage, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var ups []models.UserPackage
	err := r.db.Preload("Package").
		Where("user_id IN ? AND status = ?", userIDs, models.UserPackageStatusActive).
		Order("id ASC").
		Find(&ups).Error
	return ups, err
}

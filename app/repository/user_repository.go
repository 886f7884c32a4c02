package repository

import (
	"github.com/ManuelReschke/PayMatrix/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// UpdateStatus sets the account status of a user
func (r *userRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error
}

// ListSponsorLinks returns the flat parent-pointer table ordered by registration
func (r *userRepository) ListSponsorLinks() ([]models.SponsorLink, error) {
	var links []models.SponsorLink
	err := r.db.Model(&models.User{}).
		Select("id AS user_id, sponsor_id, created_at").
		Order("created_at ASC, id ASC").
		Scan(&links).Error
	return links, err
}

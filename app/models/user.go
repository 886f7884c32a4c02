package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User is a member of the referral forest. SponsorID points at the direct upline.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email     string    `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	SponsorID *uint     `gorm:"index" json:"sponsor_id"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status" validate:"oneof=active inactive suspended"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// SponsorLink is one row of the flat parent-pointer table the sponsorship graph is built from.
type SponsorLink struct {
	UserID    uint
	SponsorID *uint
	CreatedAt time.Time
}

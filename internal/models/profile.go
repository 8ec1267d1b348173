package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile represents a person known to the system: a tenant, landlord
// or agency staff member. The ID is the OAuth subject from Google sign-in.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	FullName    string    `gorm:"size:100" json:"full_name"`
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PhoneNumber string    `gorm:"size:20" json:"phone_number"`
	AvatarURL   string    `gorm:"size:500" json:"avatar_url"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new profile
func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// BeforeSave hook is called before saving the profile
func (p *UserProfile) BeforeSave(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}

// TableName specifies the table name for the UserProfile model
func (UserProfile) TableName() string {
	return "user_profile"
}

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	FullName    string `json:"full_name" binding:"omitempty,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

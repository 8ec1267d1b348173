package models

import (
	"time"

	"gorm.io/gorm"
)

// Member roles within an organization
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleCaretaker = "caretaker"
)

// Organization represents a property-management company (agency or landlord)
type Organization struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	PhoneNumber string    `gorm:"size:20" json:"phone_number"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// OrganizationMember links a user profile to an organization with a role.
// The reminder dispatcher uses the first admin member of an organization
// as the "from" identity for in-app messages.
type OrganizationMember struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index:idx_org_member,unique" json:"organization_id"`
	UserID         string    `gorm:"size:128;not null;index:idx_org_member,unique" json:"user_id"`
	Role           string    `gorm:"size:20;not null" json:"role"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook for organizations
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	return nil
}

// BeforeCreate hook for organization members
func (m *OrganizationMember) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for the Organization model
func (Organization) TableName() string {
	return "organization"
}

// TableName specifies the table name for the OrganizationMember model
func (OrganizationMember) TableName() string {
	return "organization_member"
}

// CreateOrganizationRequest represents the data needed to create an organization
type CreateOrganizationRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

// AddMemberRequest represents the data needed to add a member to an organization
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=admin manager caretaker"`
}

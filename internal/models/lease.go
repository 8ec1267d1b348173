package models

import (
	"time"

	"gorm.io/gorm"
)

// Lease statuses
const (
	LeaseActive     = "active"
	LeaseTerminated = "terminated"
	LeaseExpired    = "expired"
)

// Lease represents a tenancy agreement binding a tenant to an apartment unit
type Lease struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UnitID         uint       `gorm:"not null;index" json:"unit_id"`
	TenantID       string     `gorm:"size:128;not null;index" json:"tenant_id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	Status         string     `gorm:"size:20;not null;default:'active'" json:"status"`
	StartDate      time.Time  `gorm:"type:date;not null" json:"start_date"`
	RentPaidUntil  *time.Time `gorm:"type:date" json:"rent_paid_until"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for leases
func (l *Lease) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	if l.Status == "" {
		l.Status = LeaseActive
	}
	return nil
}

// TableName specifies the table name for the Lease model
func (Lease) TableName() string {
	return "lease"
}

// CreateLeaseRequest represents the data needed to create a lease
type CreateLeaseRequest struct {
	UnitID    uint      `json:"unit_id" binding:"required"`
	TenantID  string    `json:"tenant_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Maintenance request statuses
const (
	MaintenanceOpen       = "open"
	MaintenanceInProgress = "in_progress"
	MaintenanceResolved   = "resolved"
)

// MaintenanceRequest represents a repair request raised by a tenant for
// their unit
type MaintenanceRequest struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	UnitID         uint           `gorm:"not null;index" json:"unit_id"`
	TenantID       string         `gorm:"size:128;not null;index" json:"tenant_id"`
	Title          string         `gorm:"size:120;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Status         string         `gorm:"size:20;not null;default:'open'" json:"status"`
	Photos         datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"photos"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for maintenance requests
func (m *MaintenanceRequest) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	if m.Status == "" {
		m.Status = MaintenanceOpen
	}
	return nil
}

// TableName specifies the table name for the MaintenanceRequest model
func (MaintenanceRequest) TableName() string {
	return "maintenance_request"
}

// UpdateMaintenanceStatusRequest represents a status change
type UpdateMaintenanceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open in_progress resolved"`
}

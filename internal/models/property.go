package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Address represents a validated street address using Google Maps data
type Address struct {
	FormattedAddress string  `json:"formatted_address" binding:"required"`
	PlaceID          string  `json:"place_id" binding:"required"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// Implement driver.Valuer and sql.Scanner
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal Address: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

// Property represents a building or compound managed by an organization
type Property struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Address        Address   `gorm:"type:json" json:"address"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// ApartmentUnit represents a single rentable unit within a property
type ApartmentUnit struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PropertyID     uint      `gorm:"not null;index" json:"property_id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	UnitNumber     string    `gorm:"size:20;not null" json:"unit_number"`
	MonthlyRent    float64   `gorm:"type:decimal(12,2);not null" json:"monthly_rent"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for properties
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// BeforeCreate hook for apartment units
func (u *ApartmentUnit) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	return nil
}

// TableName specifies the table name for the Property model
func (Property) TableName() string {
	return "property"
}

// TableName specifies the table name for the ApartmentUnit model
func (ApartmentUnit) TableName() string {
	return "apartment_unit"
}

// CreatePropertyRequest represents the data needed to register a property
type CreatePropertyRequest struct {
	OrganizationID uint   `json:"organization_id" binding:"required"`
	Name           string `json:"name" binding:"required,max=100"`
	PlaceID        string `json:"place_id" binding:"required"`
}

// CreateUnitRequest represents the data needed to register a unit
type CreateUnitRequest struct {
	UnitNumber  string  `json:"unit_number" binding:"required,max=20"`
	MonthlyRent float64 `json:"monthly_rent" binding:"required,min=0"`
}

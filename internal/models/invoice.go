package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses
const (
	InvoiceUnpaid  = "unpaid"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// Invoice represents a rent invoice issued against a lease for one period.
// LastReminderStage and LastReminderSentAt are advanced by the reminder
// dispatcher after a successful SMS send; invoice generation reads them to
// avoid re-issuing early-stage reminders. They only ever move forward.
type Invoice struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	LeaseID            uint       `gorm:"not null;index" json:"lease_id"`
	OrganizationID     uint       `gorm:"not null;index" json:"organization_id"`
	Amount             float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate            time.Time  `gorm:"type:date;not null" json:"due_date"`
	PeriodStart        time.Time  `gorm:"type:date;not null" json:"period_start"`
	Status             string     `gorm:"size:20;not null;default:'unpaid'" json:"status"`
	LastReminderStage  *int       `json:"last_reminder_stage"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for invoices
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = now
	}
	if i.Status == "" {
		i.Status = InvoiceUnpaid
	}
	return nil
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoice"
}

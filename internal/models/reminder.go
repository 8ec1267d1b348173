package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DeliveryStatus represents the delivery state of a reminder
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// ReminderChannel represents how a reminder is delivered
type ReminderChannel string

const (
	ChannelSMS   ReminderChannel = "sms"
	ChannelInApp ReminderChannel = "in_app"
)

// ReminderPayload carries per-reminder template context. Every field is
// optional; missing values fall back to the linked invoice or to defaults
// during rendering.
type ReminderPayload struct {
	TemplateKey string   `json:"template_key,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	PeriodStart string   `json:"period_start,omitempty"`
}

// Implement driver.Valuer and sql.Scanner
func (p ReminderPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ReminderPayload) Scan(value interface{}) error {
	if value == nil {
		*p = ReminderPayload{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported type for ReminderPayload: %T", value)
	}
}

// Reminder is a queued, time-triggered outbound notification tied to a
// tenant and (optionally) an invoice. Rows are created by invoice
// generation with status pending; only the dispatcher mutates them, and
// sent/failed are terminal.
type Reminder struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         string          `gorm:"size:128;not null;index" json:"user_id"`
	OrganizationID uint            `gorm:"not null;index" json:"organization_id"`
	InvoiceID      *uint           `gorm:"index" json:"invoice_id"`
	Kind           string          `gorm:"size:30;not null" json:"kind"` // e.g. "rent_payment"
	Channel        ReminderChannel `gorm:"size:10;not null" json:"channel"`
	DeliveryStatus DeliveryStatus  `gorm:"size:10;not null;default:'pending';index:idx_reminder_due" json:"delivery_status"`
	ScheduledFor   time.Time       `gorm:"not null;index:idx_reminder_due" json:"scheduled_for"`
	ScheduledSlot  string          `gorm:"size:5" json:"scheduled_slot"` // "00:30", "14:00"
	Stage          *int            `json:"stage"`
	AttemptCount   int             `gorm:"not null;default:0" json:"attempt_count"`
	LastError      *string         `gorm:"type:text" json:"last_error"`
	SentAt         *time.Time      `json:"sent_at"`
	Message        string          `gorm:"type:text" json:"message"` // literal fallback body
	Payload        ReminderPayload `gorm:"type:jsonb" json:"payload"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new reminder
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.DeliveryStatus == "" {
		r.DeliveryStatus = DeliveryPending
	}
	return nil
}

// BeforeSave hook is called before saving the reminder
func (r *Reminder) BeforeSave(tx *gorm.DB) error {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminder"
}

// CreateReminderRequest represents the data needed to queue a reminder
type CreateReminderRequest struct {
	UserID         string          `json:"user_id" binding:"required"`
	OrganizationID uint            `json:"organization_id" binding:"required"`
	InvoiceID      *uint           `json:"invoice_id"`
	Kind           string          `json:"kind" binding:"required,max=30"`
	Channel        ReminderChannel `json:"channel" binding:"required,oneof=sms in_app"`
	ScheduledFor   time.Time       `json:"scheduled_for" binding:"required"`
	ScheduledSlot  string          `json:"scheduled_slot" binding:"omitempty,max=5"`
	Stage          *int            `json:"stage"`
	Message        string          `json:"message"`
	Payload        ReminderPayload `json:"payload"`
}

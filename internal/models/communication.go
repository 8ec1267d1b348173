package models

import (
	"time"

	"gorm.io/gorm"
)

// Communication types
const (
	CommunicationInApp = "in_app"
	CommunicationSMS   = "sms"
)

// Communication is the append-only ledger of delivered messages. The
// dispatcher inserts one row per successful send (in-app insert, or SMS
// accepted by the gateway); rows are never updated afterwards.
type Communication struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrganizationID   uint      `gorm:"not null;index" json:"organization_id"`
	SenderID         string    `gorm:"size:128;not null" json:"sender_id"`
	RecipientID      string    `gorm:"size:128;not null;index" json:"recipient_id"`
	Body             string    `gorm:"type:text;not null" json:"body"`
	Type             string    `gorm:"size:10;not null" json:"type"` // "in_app" or "sms"
	RelatedType      string    `gorm:"size:20" json:"related_type"`
	RelatedID        *uint     `json:"related_id"`
	Read             bool      `gorm:"not null;default:false" json:"read"`
	GatewayMessageID *string   `gorm:"size:100" json:"gateway_message_id"`
	ViaGateway       bool      `gorm:"not null;default:false" json:"via_gateway"`
	CreatedAt        time.Time `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate hook is called before creating a new communication
func (c *Communication) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for the Communication model
func (Communication) TableName() string {
	return "communication"
}

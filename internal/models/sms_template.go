package models

import "time"

// SMSTemplate is a per-organization message body with {{placeholder}}
// tokens, selected by template key during reminder rendering.
type SMSTemplate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_org_template_key" json:"organization_id"`
	TemplateKey    string    `gorm:"size:50;not null;uniqueIndex:idx_org_template_key" json:"template_key"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the SMSTemplate model
func (SMSTemplate) TableName() string {
	return "sms_template"
}

// CreateSMSTemplateRequest represents the data needed to create a template
type CreateSMSTemplateRequest struct {
	TemplateKey string `json:"template_key" binding:"required,max=50"`
	Body        string `json:"body" binding:"required"`
}

package services

import (
	"fmt"
	"makao/internal/models"
	"time"

	"gorm.io/gorm"
)

// DispatchStore is the persistence surface the reminder dispatcher needs.
// Every lookup is a batch get-by-ids so one run costs a constant number of
// round trips regardless of batch size. Tests back this with in-memory maps.
type DispatchStore interface {
	DueReminders(now time.Time, limit int) ([]models.Reminder, error)
	InvoicesByID(ids []uint) (map[uint]models.Invoice, error)
	LeasesByID(ids []uint) (map[uint]models.Lease, error)
	UnitsByID(ids []uint) (map[uint]models.ApartmentUnit, error)
	ProfilesByID(ids []string) (map[string]models.UserProfile, error)
	// AdminSendersByOrg returns one admin user id per organization
	// (first member wins).
	AdminSendersByOrg(orgIDs []uint) (map[uint]string, error)
	// TemplatesByOrg returns template bodies keyed "<org_id>:<template_key>".
	TemplatesByOrg(orgIDs []uint) (map[string]string, error)
	SaveReminder(r *models.Reminder) error
	InsertCommunication(c *models.Communication) error
	StampInvoiceReminder(invoiceID uint, stage int, at time.Time) error
}

type gormDispatchStore struct {
	db *gorm.DB
}

// NewDispatchStore creates the GORM-backed dispatch store
func NewDispatchStore(db *gorm.DB) DispatchStore {
	return &gormDispatchStore{db: db}
}

func (s *gormDispatchStore) DueReminders(now time.Time, limit int) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.
		Where("delivery_status = ? AND scheduled_for <= ?", models.DeliveryPending, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&reminders).Error
	return reminders, err
}

func (s *gormDispatchStore) InvoicesByID(ids []uint) (map[uint]models.Invoice, error) {
	result := make(map[uint]models.Invoice, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var invoices []models.Invoice
	if err := s.db.Where("id IN ?", ids).Find(&invoices).Error; err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		result[invoice.ID] = invoice
	}
	return result, nil
}

func (s *gormDispatchStore) LeasesByID(ids []uint) (map[uint]models.Lease, error) {
	result := make(map[uint]models.Lease, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var leases []models.Lease
	if err := s.db.Where("id IN ?", ids).Find(&leases).Error; err != nil {
		return nil, err
	}
	for _, lease := range leases {
		result[lease.ID] = lease
	}
	return result, nil
}

func (s *gormDispatchStore) UnitsByID(ids []uint) (map[uint]models.ApartmentUnit, error) {
	result := make(map[uint]models.ApartmentUnit, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var units []models.ApartmentUnit
	if err := s.db.Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, err
	}
	for _, unit := range units {
		result[unit.ID] = unit
	}
	return result, nil
}

func (s *gormDispatchStore) ProfilesByID(ids []string) (map[string]models.UserProfile, error) {
	result := make(map[string]models.UserProfile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var profiles []models.UserProfile
	if err := s.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, profile := range profiles {
		result[profile.ID] = profile
	}
	return result, nil
}

func (s *gormDispatchStore) AdminSendersByOrg(orgIDs []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(orgIDs))
	if len(orgIDs) == 0 {
		return result, nil
	}
	var members []models.OrganizationMember
	err := s.db.
		Where("organization_id IN ? AND role = ?", orgIDs, models.RoleAdmin).
		Order("id asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if _, ok := result[member.OrganizationID]; !ok {
			result[member.OrganizationID] = member.UserID
		}
	}
	return result, nil
}

func (s *gormDispatchStore) TemplatesByOrg(orgIDs []uint) (map[string]string, error) {
	result := make(map[string]string)
	if len(orgIDs) == 0 {
		return result, nil
	}
	var templates []models.SMSTemplate
	if err := s.db.Where("organization_id IN ?", orgIDs).Find(&templates).Error; err != nil {
		return nil, err
	}
	for _, tpl := range templates {
		result[templateKey(tpl.OrganizationID, tpl.TemplateKey)] = tpl.Body
	}
	return result, nil
}

func (s *gormDispatchStore) SaveReminder(r *models.Reminder) error {
	return s.db.Save(r).Error
}

func (s *gormDispatchStore) InsertCommunication(c *models.Communication) error {
	return s.db.Create(c).Error
}

func (s *gormDispatchStore) StampInvoiceReminder(invoiceID uint, stage int, at time.Time) error {
	return s.db.Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]interface{}{
			"last_reminder_stage":   stage,
			"last_reminder_sent_at": at,
		}).Error
}

func templateKey(orgID uint, key string) string {
	return fmt.Sprintf("%d:%s", orgID, key)
}

package services

import (
	"errors"
	"makao/internal/models"
	"sort"
	"strings"
	"testing"
	"time"
)

type invoiceStamp struct {
	invoiceID uint
	stage     int
	at        time.Time
}

// fakeStore backs the dispatcher with in-memory maps and records every
// write it receives
type fakeStore struct {
	reminders []models.Reminder
	invoices  map[uint]models.Invoice
	leases    map[uint]models.Lease
	units     map[uint]models.ApartmentUnit
	profiles  map[string]models.UserProfile
	senders   map[uint]string
	templates map[string]string

	saved  []models.Reminder
	comms  []models.Communication
	stamps []invoiceStamp

	lookupErr error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices:  map[uint]models.Invoice{},
		leases:    map[uint]models.Lease{},
		units:     map[uint]models.ApartmentUnit{},
		profiles:  map[string]models.UserProfile{},
		senders:   map[uint]string{},
		templates: map[string]string{},
	}
}

func (s *fakeStore) DueReminders(now time.Time, limit int) ([]models.Reminder, error) {
	var due []models.Reminder
	for _, r := range s.reminders {
		if r.DeliveryStatus == models.DeliveryPending && !r.ScheduledFor.After(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *fakeStore) InvoicesByID(ids []uint) (map[uint]models.Invoice, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	result := map[uint]models.Invoice{}
	for _, id := range ids {
		if invoice, ok := s.invoices[id]; ok {
			result[id] = invoice
		}
	}
	return result, nil
}

func (s *fakeStore) LeasesByID(ids []uint) (map[uint]models.Lease, error) {
	result := map[uint]models.Lease{}
	for _, id := range ids {
		if lease, ok := s.leases[id]; ok {
			result[id] = lease
		}
	}
	return result, nil
}

func (s *fakeStore) UnitsByID(ids []uint) (map[uint]models.ApartmentUnit, error) {
	result := map[uint]models.ApartmentUnit{}
	for _, id := range ids {
		if unit, ok := s.units[id]; ok {
			result[id] = unit
		}
	}
	return result, nil
}

func (s *fakeStore) ProfilesByID(ids []string) (map[string]models.UserProfile, error) {
	result := map[string]models.UserProfile{}
	for _, id := range ids {
		if profile, ok := s.profiles[id]; ok {
			result[id] = profile
		}
	}
	return result, nil
}

func (s *fakeStore) AdminSendersByOrg(orgIDs []uint) (map[uint]string, error) {
	result := map[uint]string{}
	for _, id := range orgIDs {
		if sender, ok := s.senders[id]; ok {
			result[id] = sender
		}
	}
	return result, nil
}

func (s *fakeStore) TemplatesByOrg(orgIDs []uint) (map[string]string, error) {
	return s.templates, nil
}

func (s *fakeStore) SaveReminder(r *models.Reminder) error {
	s.saved = append(s.saved, *r)
	return nil
}

func (s *fakeStore) InsertCommunication(c *models.Communication) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.comms = append(s.comms, *c)
	return nil
}

func (s *fakeStore) StampInvoiceReminder(invoiceID uint, stage int, at time.Time) error {
	s.stamps = append(s.stamps, invoiceStamp{invoiceID: invoiceID, stage: stage, at: at})
	return nil
}

type smsCall struct {
	to      string
	message string
}

type fakeSMS struct {
	configured bool
	err        error
	messageID  string
	sent       []smsCall
}

func (f *fakeSMS) Configured() bool { return f.configured }

func (f *fakeSMS) Send(to, message string) (string, error) {
	f.sent = append(f.sent, smsCall{to: to, message: message})
	if f.err != nil {
		return "", f.err
	}
	return f.messageID, nil
}

var testNow = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(store *fakeStore, sms *fakeSMS, batchSize int) *Dispatcher {
	d := NewDispatcher(store, sms, batchSize)
	d.now = func() time.Time { return testNow }
	return d
}

// lastSaved returns the final persisted state of a reminder after a run
func lastSaved(t *testing.T, store *fakeStore, id uint) models.Reminder {
	t.Helper()
	for i := len(store.saved) - 1; i >= 0; i-- {
		if store.saved[i].ID == id {
			return store.saved[i]
		}
	}
	t.Fatalf("reminder %d was never saved", id)
	return models.Reminder{}
}

func uintPtr(v uint) *uint    { return &v }
func intPtr(v int) *int       { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestRunEmptyBatch(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)

	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result != (DispatchResult{}) {
		t.Errorf("Run() = %+v, want all zeroes", result)
	}
}

func TestRunSkipsTerminalAndFutureReminders(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.reminders = []models.Reminder{
		{ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliverySent, ScheduledFor: testNow.Add(-time.Hour)},
		{ID: 2, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryFailed, ScheduledFor: testNow.Add(-time.Hour)},
		{ID: 3, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(time.Hour)},
		{ID: 4, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute)},
	}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 1 || result.Sent != 1 {
		t.Errorf("Run() = %+v, want processed=1 sent=1", result)
	}
	for _, saved := range store.saved {
		if saved.ID != 4 {
			t.Errorf("reminder %d was mutated; only reminder 4 was due", saved.ID)
		}
	}
}

func TestRunBatchCapTakesEarliestDue(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	for i := 1; i <= 5; i++ {
		store.reminders = append(store.reminders, models.Reminder{
			ID: uint(i), UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending,
			ScheduledFor:   testNow.Add(-time.Duration(i) * time.Minute),
		})
	}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 2)
	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("Run() processed = %d, want 2", result.Processed)
	}
	// IDs 5 and 4 are the earliest-due
	processed := map[uint]bool{}
	for _, saved := range store.saved {
		processed[saved.ID] = true
	}
	if !processed[5] || !processed[4] {
		t.Errorf("processed %v, want the earliest-due reminders 5 and 4", processed)
	}
}

func TestInAppSuccess(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.invoices[10] = models.Invoice{ID: 10, LeaseID: 20, OrganizationID: 1, Amount: 12000}
	store.leases[20] = models.Lease{ID: 20, UnitID: 30, TenantID: "u1", OrganizationID: 1}
	store.units[30] = models.ApartmentUnit{ID: 30, UnitNumber: "B12"}
	store.profiles["u1"] = models.UserProfile{ID: "u1", FullName: "Asha Mwangi"}
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10),
		Kind: "rent_payment", Channel: models.ChannelInApp,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
		Message: "Hi {{tenant_name}}, rent for unit {{unit_label}} is {{amount}}",
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("Run() = %+v, want sent=1", result)
	}

	if len(store.comms) != 1 {
		t.Fatalf("got %d communications, want 1", len(store.comms))
	}
	comm := store.comms[0]
	if comm.SenderID != "admin-1" || comm.RecipientID != "u1" {
		t.Errorf("communication sender/recipient = %s/%s, want admin-1/u1", comm.SenderID, comm.RecipientID)
	}
	if comm.Type != models.CommunicationInApp || comm.Read {
		t.Errorf("in-app communication should be unread type in_app, got type=%s read=%v", comm.Type, comm.Read)
	}
	if comm.RelatedType != "lease" || comm.RelatedID == nil || *comm.RelatedID != 20 {
		t.Errorf("communication related = %s/%v, want lease/20", comm.RelatedType, comm.RelatedID)
	}
	if comm.Body != "Hi Asha Mwangi, rent for unit B12 is 12000.00" {
		t.Errorf("rendered body = %q", comm.Body)
	}

	saved := lastSaved(t, store, 1)
	if saved.DeliveryStatus != models.DeliverySent || saved.AttemptCount != 1 {
		t.Errorf("saved = status %s attempts %d, want sent/1", saved.DeliveryStatus, saved.AttemptCount)
	}
	if saved.SentAt == nil || saved.LastError != nil {
		t.Errorf("saved sent_at/last_error = %v/%v, want set/nil", saved.SentAt, saved.LastError)
	}
}

func TestInAppInsertFailureIsTerminal(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.insertErr = errors.New("connection reset")
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	result, _ := d.Run()
	if result.Failed != 1 {
		t.Fatalf("Run() = %+v, want failed=1", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.DeliveryStatus != models.DeliveryFailed {
		t.Errorf("status = %s, want failed", saved.DeliveryStatus)
	}
	if saved.LastError == nil || !strings.Contains(*saved.LastError, "connection reset") {
		t.Errorf("last_error = %v, want the insert error", saved.LastError)
	}
}

func TestNoAdminSenderShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = models.UserProfile{ID: "u1", PhoneNumber: "0712345678"}
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 7, Channel: models.ChannelSMS,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
	}}

	sms := &fakeSMS{configured: true}
	d := newTestDispatcher(store, sms, 0)
	result, _ := d.Run()
	if result.Failed != 1 {
		t.Fatalf("Run() = %+v, want failed=1", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.DeliveryStatus != models.DeliveryFailed || saved.AttemptCount != 1 {
		t.Errorf("saved = status %s attempts %d, want failed/1", saved.DeliveryStatus, saved.AttemptCount)
	}
	if saved.LastError == nil || !strings.Contains(*saved.LastError, "admin sender") {
		t.Errorf("last_error = %v, want mention of admin sender", saved.LastError)
	}
	if len(store.comms) != 0 || len(sms.sent) != 0 {
		t.Errorf("no communication or gateway call expected, got %d/%d", len(store.comms), len(sms.sent))
	}
}

func TestSMSFirstFailureReschedules(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.profiles["u1"] = models.UserProfile{ID: "u1", PhoneNumber: "0712345678"}
	scheduled := time.Date(2025, time.March, 5, 0, 30, 0, 0, time.UTC)
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelSMS,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: scheduled,
		ScheduledSlot: "00:30", AttemptCount: 0,
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true, err: errors.New("gateway returned 503")}, 0)
	result, _ := d.Run()
	if result.Retried != 1 || result.Failed != 0 {
		t.Fatalf("Run() = %+v, want retried=1 failed=0", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.DeliveryStatus != models.DeliveryPending {
		t.Errorf("status = %s, want pending", saved.DeliveryStatus)
	}
	if saved.AttemptCount != 1 {
		t.Errorf("attempt_count = %d, want 1", saved.AttemptCount)
	}
	wantReschedule := time.Date(2025, time.March, 5, 14, 0, 0, 0, time.UTC)
	if !saved.ScheduledFor.Equal(wantReschedule) {
		t.Errorf("scheduled_for = %v, want %v", saved.ScheduledFor, wantReschedule)
	}
	if saved.ScheduledSlot != "14:00" {
		t.Errorf("scheduled_slot = %q, want 14:00", saved.ScheduledSlot)
	}
	if saved.LastError == nil || !strings.Contains(*saved.LastError, "503") {
		t.Errorf("last_error = %v, want the gateway error", saved.LastError)
	}
	if len(store.comms) != 0 {
		t.Errorf("got %d communications, want 0 on failure", len(store.comms))
	}
}

func TestSMSSecondFailureIsTerminal(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.profiles["u1"] = models.UserProfile{ID: "u1", PhoneNumber: "0712345678"}
	scheduled := time.Date(2025, time.March, 5, 14, 0, 0, 0, time.UTC)
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelSMS,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: scheduled.Add(-15 * time.Hour),
		ScheduledSlot: "14:00", AttemptCount: 1,
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true, err: errors.New("gateway returned 503")}, 0)
	result, _ := d.Run()
	if result.Failed != 1 || result.Retried != 0 {
		t.Fatalf("Run() = %+v, want failed=1 retried=0", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.DeliveryStatus != models.DeliveryFailed || saved.AttemptCount != 2 {
		t.Errorf("saved = status %s attempts %d, want failed/2", saved.DeliveryStatus, saved.AttemptCount)
	}
	if len(store.comms) != 0 {
		t.Errorf("got %d communications, want 0 on failure", len(store.comms))
	}
}

func TestSMSMissingPhoneFailsWithoutGatewayCall(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.profiles["u1"] = models.UserProfile{ID: "u1"}
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelSMS,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
	}}

	sms := &fakeSMS{configured: true}
	d := newTestDispatcher(store, sms, 0)
	result, _ := d.Run()
	if result.Failed != 1 {
		t.Fatalf("Run() = %+v, want failed=1", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.LastError == nil || !strings.Contains(*saved.LastError, "phone_number") {
		t.Errorf("last_error = %v, want mention of phone_number", saved.LastError)
	}
	if len(sms.sent) != 0 {
		t.Errorf("gateway was called %d times, want 0", len(sms.sent))
	}
}

func TestSMSUnconfiguredGatewayFails(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.profiles["u1"] = models.UserProfile{ID: "u1", PhoneNumber: "0712345678"}
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelSMS,
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: false}, 0)
	result, _ := d.Run()
	if result.Failed != 1 {
		t.Fatalf("Run() = %+v, want failed=1", result)
	}

	saved := lastSaved(t, store, 1)
	if saved.LastError == nil || !strings.Contains(*saved.LastError, "not configured") {
		t.Errorf("last_error = %v, want configuration error", saved.LastError)
	}
}

func TestSMSSuccessAuditAndInvoiceRatchet(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.invoices[10] = models.Invoice{
		ID: 10, LeaseID: 20, OrganizationID: 1, Amount: 15000,
		DueDate:     time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		PeriodStart: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	store.leases[20] = models.Lease{ID: 20, UnitID: 30, TenantID: "u1", OrganizationID: 1}
	store.units[30] = models.ApartmentUnit{ID: 30, UnitNumber: "B12"}
	store.profiles["u1"] = models.UserProfile{ID: "u1", FullName: "Asha Mwangi", PhoneNumber: "0712345678"}
	store.templates["1:rent_payment"] = "Hello {{tenant_name}}, KES {{amount}} for {{period_label}} is due {{due_date}}"
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10),
		Kind: "rent_payment", Channel: models.ChannelSMS, Stage: intPtr(2),
		DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute),
		Payload: models.ReminderPayload{TemplateKey: "rent_payment"},
	}}

	sms := &fakeSMS{configured: true, messageID: "ATXid_123"}
	d := newTestDispatcher(store, sms, 0)
	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("Run() = %+v, want sent=1", result)
	}

	if len(sms.sent) != 1 {
		t.Fatalf("gateway was called %d times, want 1", len(sms.sent))
	}
	if sms.sent[0].to != "+254712345678" {
		t.Errorf("recipient = %q, want +254712345678", sms.sent[0].to)
	}
	wantBody := "Hello Asha Mwangi, KES 15000.00 for March 2025 is due 2025-03-10"
	if sms.sent[0].message != wantBody {
		t.Errorf("message = %q, want %q", sms.sent[0].message, wantBody)
	}

	if len(store.comms) != 1 {
		t.Fatalf("got %d communications, want 1", len(store.comms))
	}
	comm := store.comms[0]
	if comm.Type != models.CommunicationSMS || !comm.Read || !comm.ViaGateway {
		t.Errorf("sms communication = type %s read %v via_gateway %v, want sms/true/true", comm.Type, comm.Read, comm.ViaGateway)
	}
	if comm.GatewayMessageID == nil || *comm.GatewayMessageID != "ATXid_123" {
		t.Errorf("gateway_message_id = %v, want ATXid_123", comm.GatewayMessageID)
	}
	if comm.RelatedID == nil || *comm.RelatedID != 20 {
		t.Errorf("related_id = %v, want lease 20", comm.RelatedID)
	}

	if len(store.stamps) != 1 {
		t.Fatalf("got %d invoice stamps, want 1", len(store.stamps))
	}
	stamp := store.stamps[0]
	if stamp.invoiceID != 10 || stamp.stage != 2 || !stamp.at.Equal(testNow) {
		t.Errorf("stamp = %+v, want invoice 10 stage 2 at run time", stamp)
	}
}

func TestNoRatchetWithoutStageOrOnInApp(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.invoices[10] = models.Invoice{ID: 10, LeaseID: 20, OrganizationID: 1, Amount: 15000}
	store.leases[20] = models.Lease{ID: 20, UnitID: 30, TenantID: "u1", OrganizationID: 1}
	store.profiles["u1"] = models.UserProfile{ID: "u1", PhoneNumber: "0712345678"}
	store.reminders = []models.Reminder{
		// SMS success but no stage
		{ID: 1, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10),
			Channel: models.ChannelSMS, DeliveryStatus: models.DeliveryPending,
			ScheduledFor: testNow.Add(-2 * time.Minute)},
		// in-app success with a stage
		{ID: 2, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10), Stage: intPtr(1),
			Channel: models.ChannelInApp, DeliveryStatus: models.DeliveryPending,
			ScheduledFor: testNow.Add(-time.Minute)},
	}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	result, _ := d.Run()
	if result.Sent != 2 {
		t.Fatalf("Run() = %+v, want sent=2", result)
	}
	if len(store.stamps) != 0 {
		t.Errorf("got %d invoice stamps, want 0", len(store.stamps))
	}
}

func TestRenderFallsBackToMessageThenDefault(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.reminders = []models.Reminder{
		// No template match: literal message wins
		{ID: 1, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-2 * time.Minute),
			Message: "Custom fallback", Payload: models.ReminderPayload{TemplateKey: "missing_key"}},
		// No template, no message: default body
		{ID: 2, UserID: "u1", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute)},
	}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	if _, err := d.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.comms) != 2 {
		t.Fatalf("got %d communications, want 2", len(store.comms))
	}
	if store.comms[0].Body != "Custom fallback" {
		t.Errorf("body = %q, want literal fallback message", store.comms[0].Body)
	}
	if store.comms[1].Body != "Reminder" {
		t.Errorf("body = %q, want default body", store.comms[1].Body)
	}
}

func TestPayloadAmountOverridesInvoice(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.invoices[10] = models.Invoice{ID: 10, LeaseID: 20, OrganizationID: 1, Amount: 15000}
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10),
		Channel: models.ChannelInApp, DeliveryStatus: models.DeliveryPending,
		ScheduledFor: testNow.Add(-time.Minute),
		Message:      "Balance: {{amount}}",
		Payload:      models.ReminderPayload{Amount: floatPtr(7500)},
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	if _, err := d.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.comms[0].Body != "Balance: 7500.00" {
		t.Errorf("body = %q, want payload amount", store.comms[0].Body)
	}
}

func TestLookupFailureAbortsRun(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("query timeout")
	store.reminders = []models.Reminder{{
		ID: 1, UserID: "u1", OrganizationID: 1, InvoiceID: uintPtr(10),
		Channel: models.ChannelInApp, DeliveryStatus: models.DeliveryPending,
		ScheduledFor: testNow.Add(-time.Minute),
	}}

	d := newTestDispatcher(store, &fakeSMS{configured: true}, 0)
	_, err := d.Run()
	if err == nil || !strings.Contains(err.Error(), "query timeout") {
		t.Fatalf("Run() error = %v, want the lookup error", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("no reminder should be mutated on a lookup failure, got %d saves", len(store.saved))
	}
}

func TestDecideSMSFailure(t *testing.T) {
	sendErr := errors.New("gateway returned 503")
	scheduled := time.Date(2025, time.March, 5, 23, 50, 0, 0, time.UTC)

	first := decideSMSFailure(0, scheduled, sendErr)
	if first.Status != models.DeliveryPending || !first.Reschedule {
		t.Errorf("first failure = %+v, want pending reschedule", first)
	}
	if want := time.Date(2025, time.March, 5, 14, 0, 0, 0, time.UTC); !first.ScheduledFor.Equal(want) {
		t.Errorf("reschedule = %v, want same-day %v", first.ScheduledFor, want)
	}
	if first.ScheduledSlot != "14:00" || first.AttemptCount != 1 {
		t.Errorf("slot/attempts = %q/%d, want 14:00/1", first.ScheduledSlot, first.AttemptCount)
	}

	second := decideSMSFailure(1, scheduled, sendErr)
	if second.Status != models.DeliveryFailed || second.Reschedule {
		t.Errorf("second failure = %+v, want terminal", second)
	}
	if second.AttemptCount != 2 {
		t.Errorf("attempts = %d, want 2", second.AttemptCount)
	}
}

// The end-to-end mixed batch from three channels/outcomes
func TestRunMixedBatch(t *testing.T) {
	store := newFakeStore()
	store.senders[1] = "admin-1"
	store.profiles["a"] = models.UserProfile{ID: "a", FullName: "Asha"}
	store.profiles["b"] = models.UserProfile{ID: "b", FullName: "Brian", PhoneNumber: "0712345678"}
	store.profiles["c"] = models.UserProfile{ID: "c", FullName: "Carol", PhoneNumber: "0722000000"}
	store.reminders = []models.Reminder{
		{ID: 1, UserID: "a", OrganizationID: 1, Channel: models.ChannelInApp,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-3 * time.Minute)},
		{ID: 2, UserID: "b", OrganizationID: 1, Channel: models.ChannelSMS, AttemptCount: 0,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-2 * time.Minute)},
		{ID: 3, UserID: "c", OrganizationID: 1, Channel: models.ChannelSMS, AttemptCount: 1,
			DeliveryStatus: models.DeliveryPending, ScheduledFor: testNow.Add(-time.Minute)},
	}

	d := newTestDispatcher(store, &fakeSMS{configured: true, err: errors.New("gateway returned 503")}, 0)
	result, err := d.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := DispatchResult{Processed: 3, Sent: 1, Failed: 1, Retried: 1}
	if result != want {
		t.Errorf("Run() = %+v, want %+v", result, want)
	}
	if len(store.comms) != 1 {
		t.Errorf("got %d communications, want 1 (in-app only)", len(store.comms))
	}
	if failed := lastSaved(t, store, 3); failed.LastError == nil || !strings.Contains(*failed.LastError, "503") {
		t.Errorf("reminder 3 last_error = %v, want gateway error", failed.LastError)
	}
}

package services

import (
	"fmt"
	"log"
	"makao/internal/models"
	"strings"
	"time"
)

// DefaultBatchSize caps how many due reminders one run will process
const DefaultBatchSize = 200

// retrySlot is the slot label stamped when an SMS reminder is rescheduled
const retrySlot = "14:00"

// SMSSender is the outbound SMS surface the dispatcher depends on
type SMSSender interface {
	Configured() bool
	Send(to, message string) (string, error)
}

// Dispatcher is the reminder dispatch worker. One Run loads a bounded
// batch of due pending reminders, bulk-resolves their context, renders
// each message and delivers it in-app or over SMS, then records the
// outcome on the reminder row. Reminders are processed strictly in
// scheduled order, one at a time; each row's outcome is committed as it
// is decided, so a mid-batch fault leaves earlier outcomes in place.
type Dispatcher struct {
	store     DispatchStore
	sms       SMSSender
	batchSize int
	now       func() time.Time
}

// NewDispatcher creates a dispatcher over the given store and SMS sender
func NewDispatcher(store DispatchStore, sms SMSSender, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		store:     store,
		sms:       sms,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// DispatchResult aggregates one run's outcomes
type DispatchResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
}

// batchContext holds the bulk-prefetched lookup maps for one run. All six
// maps are built before any per-reminder work starts and are read-only
// afterwards.
type batchContext struct {
	invoices  map[uint]models.Invoice
	leases    map[uint]models.Lease
	units     map[uint]models.ApartmentUnit
	profiles  map[string]models.UserProfile
	senders   map[uint]string
	templates map[string]string
}

// reminderContext is the resolved cross-entity context for one reminder.
// Any hop may be nil; rendering degrades to defaults instead of erroring.
type reminderContext struct {
	senderID string
	invoice  *models.Invoice
	lease    *models.Lease
	unit     *models.ApartmentUnit
	profile  *models.UserProfile
}

type runOutcome int

const (
	outcomeSent runOutcome = iota
	outcomeFailed
	outcomeRetried
)

// Run executes one dispatch pass. Only bulk-lookup failures propagate;
// per-reminder errors become status + last_error updates on that row.
func (d *Dispatcher) Run() (DispatchResult, error) {
	var result DispatchResult
	now := d.now().UTC()

	batch, err := d.store.DueReminders(now, d.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to load due reminders: %w", err)
	}
	if len(batch) == 0 {
		return result, nil
	}

	bc, err := d.loadContext(batch)
	if err != nil {
		return result, err
	}

	for i := range batch {
		reminder := &batch[i]
		result.Processed++
		switch d.process(reminder, bc, now) {
		case outcomeSent:
			result.Sent++
		case outcomeFailed:
			result.Failed++
		case outcomeRetried:
			result.Retried++
		}
	}
	return result, nil
}

// loadContext issues the six bulk lookups for the batch. Each downstream
// table gets one "id IN (...)" query, never a per-row query.
func (d *Dispatcher) loadContext(batch []models.Reminder) (*batchContext, error) {
	invoiceIDSet := make(map[uint]struct{})
	userIDSet := make(map[string]struct{})
	orgIDSet := make(map[uint]struct{})
	for _, r := range batch {
		if r.InvoiceID != nil {
			invoiceIDSet[*r.InvoiceID] = struct{}{}
		}
		userIDSet[r.UserID] = struct{}{}
		orgIDSet[r.OrganizationID] = struct{}{}
	}

	bc := &batchContext{}
	var err error

	if bc.invoices, err = d.store.InvoicesByID(uintKeys(invoiceIDSet)); err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	leaseIDSet := make(map[uint]struct{})
	for _, invoice := range bc.invoices {
		leaseIDSet[invoice.LeaseID] = struct{}{}
	}
	if bc.leases, err = d.store.LeasesByID(uintKeys(leaseIDSet)); err != nil {
		return nil, fmt.Errorf("failed to load leases: %w", err)
	}

	unitIDSet := make(map[uint]struct{})
	for _, lease := range bc.leases {
		unitIDSet[lease.UnitID] = struct{}{}
	}
	if bc.units, err = d.store.UnitsByID(uintKeys(unitIDSet)); err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}

	if bc.profiles, err = d.store.ProfilesByID(stringKeys(userIDSet)); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	orgIDs := uintKeys(orgIDSet)
	if bc.senders, err = d.store.AdminSendersByOrg(orgIDs); err != nil {
		return nil, fmt.Errorf("failed to load organization senders: %w", err)
	}
	if bc.templates, err = d.store.TemplatesByOrg(orgIDs); err != nil {
		return nil, fmt.Errorf("failed to load sms templates: %w", err)
	}

	return bc, nil
}

func (d *Dispatcher) process(r *models.Reminder, bc *batchContext, now time.Time) runOutcome {
	senderID, ok := bc.senders[r.OrganizationID]
	if !ok {
		// Configuration error, not a transient fault: no retry
		d.markFailed(r, "no admin sender found")
		return outcomeFailed
	}

	rc := resolveContext(r, bc)
	rc.senderID = senderID
	message := renderReminder(r, bc.templates, rc)

	switch r.Channel {
	case models.ChannelInApp:
		return d.sendInApp(r, rc, message, now)
	case models.ChannelSMS:
		return d.sendSMS(r, rc, message, now)
	default:
		d.markFailed(r, fmt.Sprintf("unknown channel %q", r.Channel))
		return outcomeFailed
	}
}

// resolveContext walks invoice -> lease -> unit and looks up the target
// profile from the prefetched maps
func resolveContext(r *models.Reminder, bc *batchContext) reminderContext {
	var rc reminderContext
	if r.InvoiceID != nil {
		if invoice, ok := bc.invoices[*r.InvoiceID]; ok {
			rc.invoice = &invoice
			if lease, ok := bc.leases[invoice.LeaseID]; ok {
				rc.lease = &lease
				if unit, ok := bc.units[lease.UnitID]; ok {
					rc.unit = &unit
				}
			}
		}
	}
	if profile, ok := bc.profiles[r.UserID]; ok {
		rc.profile = &profile
	}
	return rc
}

// renderReminder picks the template body (org template by payload key,
// else the reminder's literal message, else "Reminder") and substitutes
// the variable set.
func renderReminder(r *models.Reminder, templates map[string]string, rc reminderContext) string {
	body := r.Message
	if r.Payload.TemplateKey != "" {
		if tpl, ok := templates[templateKey(r.OrganizationID, r.Payload.TemplateKey)]; ok {
			body = tpl
		}
	}
	if body == "" {
		body = "Reminder"
	}

	vars := TemplateVars{TenantName: "Tenant"}
	if rc.profile != nil && rc.profile.FullName != "" {
		vars.TenantName = rc.profile.FullName
	}
	if rc.unit != nil {
		vars.UnitLabel = rc.unit.UnitNumber
	}
	if r.Payload.Amount != nil {
		vars.Amount = *r.Payload.Amount
	} else if rc.invoice != nil {
		vars.Amount = rc.invoice.Amount
	}
	if r.Payload.DueDate != "" {
		vars.DueDate = r.Payload.DueDate
	} else if rc.invoice != nil && !rc.invoice.DueDate.IsZero() {
		vars.DueDate = rc.invoice.DueDate.Format("2006-01-02")
	}
	period := r.Payload.PeriodStart
	if period == "" && rc.invoice != nil && !rc.invoice.PeriodStart.IsZero() {
		period = rc.invoice.PeriodStart.Format("2006-01-02")
	}
	vars.PeriodLabel = PeriodLabel(period)

	return RenderTemplate(body, vars)
}

func (d *Dispatcher) sendInApp(r *models.Reminder, rc reminderContext, message string, now time.Time) runOutcome {
	comm := &models.Communication{
		OrganizationID: r.OrganizationID,
		SenderID:       rc.senderID,
		RecipientID:    r.UserID,
		Body:           message,
		Type:           models.CommunicationInApp,
		RelatedType:    "lease",
	}
	if rc.lease != nil {
		leaseID := rc.lease.ID
		comm.RelatedID = &leaseID
	} else {
		comm.RelatedID = r.InvoiceID
	}

	// A failed insert is a durable-store failure, not a network hiccup:
	// terminal, no retry
	if err := d.store.InsertCommunication(comm); err != nil {
		d.markFailed(r, fmt.Sprintf("failed to insert in-app message: %v", err))
		return outcomeFailed
	}

	d.markSent(r, now)
	return outcomeSent
}

func (d *Dispatcher) sendSMS(r *models.Reminder, rc reminderContext, message string, now time.Time) runOutcome {
	if rc.profile == nil || strings.TrimSpace(rc.profile.PhoneNumber) == "" {
		d.markFailed(r, "missing tenant phone_number")
		return outcomeFailed
	}
	if d.sms == nil || !d.sms.Configured() {
		d.markFailed(r, "sms gateway not configured")
		return outcomeFailed
	}

	recipient := NormalizePhone(rc.profile.PhoneNumber)
	gatewayMessageID, sendErr := d.sms.Send(recipient, message)
	if sendErr != nil {
		decision := decideSMSFailure(r.AttemptCount, r.ScheduledFor, sendErr)
		r.DeliveryStatus = decision.Status
		r.AttemptCount = decision.AttemptCount
		lastError := decision.LastError
		r.LastError = &lastError
		if decision.Reschedule {
			r.ScheduledFor = decision.ScheduledFor
			r.ScheduledSlot = decision.ScheduledSlot
		}
		if err := d.store.SaveReminder(r); err != nil {
			log.Printf("Error: failed to persist reminder %d outcome: %v", r.ID, err)
		}
		if decision.Reschedule {
			return outcomeRetried
		}
		return outcomeFailed
	}

	comm := &models.Communication{
		OrganizationID: r.OrganizationID,
		SenderID:       rc.senderID,
		RecipientID:    r.UserID,
		Body:           message,
		Type:           models.CommunicationSMS,
		RelatedType:    "lease",
		Read:           true, // outbound SMS has no unread-inbox semantics
		ViaGateway:     true,
	}
	if rc.lease != nil {
		leaseID := rc.lease.ID
		comm.RelatedID = &leaseID
	} else {
		comm.RelatedID = r.InvoiceID
	}
	if gatewayMessageID != "" {
		comm.GatewayMessageID = &gatewayMessageID
	}
	if err := d.store.InsertCommunication(comm); err != nil {
		// The SMS is already out; failing the reminder here would resend it
		log.Printf("Warning: sms sent but audit insert failed for reminder %d: %v", r.ID, err)
	}

	d.markSent(r, now)

	// Best-effort invoice ratchet: propagates the stage to invoice
	// generation, never changes the reminder's already-decided outcome
	if r.Stage != nil && rc.invoice != nil {
		if err := d.store.StampInvoiceReminder(rc.invoice.ID, *r.Stage, now); err != nil {
			log.Printf("Warning: failed to stamp invoice %d reminder stage: %v", rc.invoice.ID, err)
		}
	}

	return outcomeSent
}

// smsFailureDecision is the outcome of a failed gateway send
type smsFailureDecision struct {
	Status        models.DeliveryStatus
	AttemptCount  int
	Reschedule    bool
	ScheduledFor  time.Time
	ScheduledSlot string
	LastError     string
}

// decideSMSFailure applies the retry policy: the first gateway failure
// reschedules the reminder to 14:00 UTC on its original calendar day and
// leaves it pending; any later failure is terminal. Because a rescheduled
// reminder carries attempt_count >= 1, at most one reschedule can ever
// happen per reminder.
func decideSMSFailure(attemptCount int, scheduledFor time.Time, sendErr error) smsFailureDecision {
	decision := smsFailureDecision{
		AttemptCount: attemptCount + 1,
		LastError:    sendErr.Error(),
	}
	if attemptCount == 0 {
		day := scheduledFor.UTC()
		decision.Status = models.DeliveryPending
		decision.Reschedule = true
		decision.ScheduledFor = time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, time.UTC)
		decision.ScheduledSlot = retrySlot
		return decision
	}
	decision.Status = models.DeliveryFailed
	return decision
}

func (d *Dispatcher) markFailed(r *models.Reminder, reason string) {
	r.DeliveryStatus = models.DeliveryFailed
	r.AttemptCount++
	r.LastError = &reason
	if err := d.store.SaveReminder(r); err != nil {
		log.Printf("Error: failed to persist reminder %d failure: %v", r.ID, err)
	}
}

func (d *Dispatcher) markSent(r *models.Reminder, now time.Time) {
	sentAt := now
	r.DeliveryStatus = models.DeliverySent
	r.AttemptCount++
	r.SentAt = &sentAt
	r.LastError = nil
	if err := d.store.SaveReminder(r); err != nil {
		log.Printf("Error: failed to persist reminder %d send: %v", r.ID, err)
	}
}

func uintKeys(set map[uint]struct{}) []uint {
	keys := make([]uint, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

func stringKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

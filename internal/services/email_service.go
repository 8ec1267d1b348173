package services

import (
	"fmt"
	"makao/internal/models"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL")
	fromName := os.Getenv("SENDGRID_FROM_NAME")

	client := sendgrid.NewSendClient(apiKey)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendMaintenanceRequestEmail notifies the organization's admin of a new
// maintenance request
func (s *EmailService) SendMaintenanceRequestEmail(adminEmail, adminName, tenantName, unitNumber string, request models.MaintenanceRequest) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(adminName, adminEmail)
	subject := fmt.Sprintf("New maintenance request for unit %s", unitNumber)
	plainContent := fmt.Sprintf("%s reported: %s — %s", tenantName, request.Title, request.Description)
	htmlContent := fmt.Sprintf("<p>%s reported:</p><p><strong>%s</strong></p><p>%s</p>",
		tenantName, request.Title, request.Description)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	response, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", adminEmail, response.StatusCode)
	}
	return nil
}

// SendMaintenanceResolvedEmail notifies the tenant their request was resolved
func (s *EmailService) SendMaintenanceResolvedEmail(tenantEmail, tenantName, unitNumber, title string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(tenantName, tenantEmail)
	subject := fmt.Sprintf("Maintenance request resolved: unit %s", unitNumber)
	plainContent := fmt.Sprintf("Your maintenance request '%s' has been marked resolved.", title)
	htmlContent := fmt.Sprintf("<p>Your maintenance request '<strong>%s</strong>' has been marked resolved.</p>", title)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	_, err := s.client.Send(message)
	return err
}

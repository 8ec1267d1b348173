package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultGatewayURL = "https://api.africastalking.com/version1/messaging"

// SMSConfig carries the gateway credentials. It is built once in main (or
// by hand in tests) and passed in; the sending code never reads the
// environment itself.
type SMSConfig struct {
	Username string
	APIKey   string
	SenderID string
	BaseURL  string
}

// SMSConfigFromEnv reads the gateway credentials from the environment
func SMSConfigFromEnv() SMSConfig {
	return SMSConfig{
		Username: os.Getenv("SMS_GATEWAY_USERNAME"),
		APIKey:   os.Getenv("SMS_GATEWAY_API_KEY"),
		SenderID: os.Getenv("SMS_GATEWAY_SENDER_ID"),
		BaseURL:  os.Getenv("SMS_GATEWAY_URL"),
	}
}

// SMSGateway sends outbound messages through the bulk-SMS provider's HTTP
// API (form-encoded POST with an api-key header).
type SMSGateway struct {
	cfg    SMSConfig
	client *http.Client
}

// NewSMSGateway creates a gateway client from the given config
func NewSMSGateway(cfg SMSConfig) *SMSGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGatewayURL
	}
	return &SMSGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether gateway credentials are present
func (g *SMSGateway) Configured() bool {
	return g.cfg.Username != "" && g.cfg.APIKey != ""
}

// gatewayResponse mirrors the provider's success shape
type gatewayResponse struct {
	SMSMessageData struct {
		Recipients []struct {
			Number    string `json:"number"`
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send posts one message to the gateway and returns the gateway's message
// id. Any non-2xx status, unparseable body, or per-recipient rejection is
// an error carrying the raw status/body for the reminder's last_error.
func (g *SMSGateway) Send(to, message string) (string, error) {
	form := url.Values{}
	form.Set("username", g.cfg.Username)
	form.Set("to", to)
	form.Set("message", message)
	if g.cfg.SenderID != "" {
		form.Set("from", g.cfg.SenderID)
	}

	req, err := http.NewRequest(http.MethodPost, g.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build sms gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("sms gateway returned unparseable response: %s", strings.TrimSpace(string(body)))
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return "", fmt.Errorf("sms gateway accepted no recipients: %s", strings.TrimSpace(string(body)))
	}

	recipient := parsed.SMSMessageData.Recipients[0]
	if recipient.Status != "" && recipient.Status != "Success" {
		return "", fmt.Errorf("sms gateway rejected message: %s", recipient.Status)
	}
	return recipient.MessageID, nil
}

package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func successBody(messageID string) string {
	return `{"SMSMessageData":{"Recipients":[{"number":"+254712345678","status":"Success","messageId":"` + messageID + `"}]}}`
}

func TestSMSGatewaySend(t *testing.T) {
	var gotForm map[string]string
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotForm = map[string]string{
			"username": r.PostFormValue("username"),
			"to":       r.PostFormValue("to"),
			"message":  r.PostFormValue("message"),
			"from":     r.PostFormValue("from"),
		}
		gotAPIKey = r.Header.Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody("ATXid_123")))
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{
		Username: "sandbox",
		APIKey:   "test-key",
		SenderID: "MAKAO",
		BaseURL:  server.URL,
	})

	messageID, err := gateway.Send("+254712345678", "Rent is due")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if messageID != "ATXid_123" {
		t.Errorf("Send() message id = %q, want ATXid_123", messageID)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("apiKey header = %q, want test-key", gotAPIKey)
	}
	want := map[string]string{
		"username": "sandbox",
		"to":       "+254712345678",
		"message":  "Rent is due",
		"from":     "MAKAO",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form %s = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestSMSGatewaySendOmitsEmptySender(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if _, present := r.PostForm["from"]; present {
			t.Error("from field should be omitted when no sender id is configured")
		}
		w.Write([]byte(successBody("ATXid_456")))
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "test-key", BaseURL: server.URL})
	if _, err := gateway.Send("+254712345678", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func TestSMSGatewaySendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "test-key", BaseURL: server.URL})
	_, err := gateway.Send("+254712345678", "hello")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Send() error = %v, want mention of status 503", err)
	}
}

func TestSMSGatewaySendUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway maintenance</html>"))
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "test-key", BaseURL: server.URL})
	_, err := gateway.Send("+254712345678", "hello")
	if err == nil || !strings.Contains(err.Error(), "unparseable") {
		t.Errorf("Send() error = %v, want unparseable response error", err)
	}
}

func TestSMSGatewaySendNoRecipients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SMSMessageData":{"Recipients":[]}}`))
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "test-key", BaseURL: server.URL})
	if _, err := gateway.Send("+254712345678", "hello"); err == nil {
		t.Error("Send() error = nil, want error for empty recipient list")
	}
}

func TestSMSGatewaySendRejectedRecipient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254712345678","status":"InvalidPhoneNumber"}]}}`))
	}))
	defer server.Close()

	gateway := NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "test-key", BaseURL: server.URL})
	_, err := gateway.Send("+254712345678", "hello")
	if err == nil || !strings.Contains(err.Error(), "InvalidPhoneNumber") {
		t.Errorf("Send() error = %v, want the recipient status", err)
	}
}

func TestSMSGatewayConfigured(t *testing.T) {
	if NewSMSGateway(SMSConfig{}).Configured() {
		t.Error("Configured() = true with no credentials")
	}
	if NewSMSGateway(SMSConfig{Username: "sandbox"}).Configured() {
		t.Error("Configured() = true with username only")
	}
	if !NewSMSGateway(SMSConfig{Username: "sandbox", APIKey: "k"}).Configured() {
		t.Error("Configured() = false with full credentials")
	}
}

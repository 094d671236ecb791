package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTelnyxSenderSendSMS(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key_123" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelnyxSender("key_123", "+15550001111", "profile_1", nil).WithBaseURL(srv.URL)
	if err := s.SendSMS(context.Background(), "+15551234567", "hello"); err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if got["to"] != "+15551234567" || got["text"] != "hello" || got["from"] != "+15550001111" {
		t.Fatalf("payload = %v", got)
	}
}

func TestTelnyxSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":"40300"}]}`, http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewTelnyxSender("key", "+15550001111", "", nil).WithBaseURL(srv.URL)
	if err := s.SendSMS(context.Background(), "+15551234567", "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTelnyxSenderRequiresCredentials(t *testing.T) {
	s := NewTelnyxSender("", "", "", nil)
	if err := s.SendSMS(context.Background(), "+15551234567", "hi"); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).SendSMS(context.Background(), "+15551234567", "hi"); err != nil {
		t.Fatalf("LogSender: %v", err)
	}
}

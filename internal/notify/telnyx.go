package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// TelnyxSender sends SMS through the Telnyx v2 messages API.
type TelnyxSender struct {
	apiKey     string
	fromNumber string
	profileID  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewTelnyxSender(apiKey, fromNumber, profileID string, logger *logging.Logger) *TelnyxSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxSender{
		apiKey:     apiKey,
		fromNumber: fromNumber,
		profileID:  profileID,
		baseURL:    "https://api.telnyx.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the API host for tests.
func (s *TelnyxSender) WithBaseURL(baseURL string) *TelnyxSender {
	if baseURL != "" {
		s.baseURL = baseURL
	}
	return s
}

func (s *TelnyxSender) SendSMS(ctx context.Context, to, body string) error {
	if s.apiKey == "" || s.fromNumber == "" {
		return fmt.Errorf("notify: telnyx credentials not configured")
	}

	payload := map[string]string{
		"from": s.fromNumber,
		"to":   to,
		"text": body,
	}
	if s.profileID != "" {
		payload["messaging_profile_id"] = s.profileID
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: telnyx payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/messages", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("notify: telnyx request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: telnyx http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: telnyx api status %d: %s", resp.StatusCode, string(respBody))
	}

	s.logger.Debug("sms sent", "to", to)
	return nil
}

package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

var squareTracer = otel.Tracer("spa.internal.payments.square")

const squareVersion = "2023-10-18"

// SquareDeposits creates hosted payment links and processes refunds against
// the Square REST API, persisting a record per deposit.
type SquareDeposits struct {
	accessToken string
	locationID  string
	redirectURL string
	baseURL     string
	httpClient  *http.Client
	store       *Store
	logger      *logging.Logger
}

func NewSquareDeposits(accessToken, locationID, redirectURL string, store *Store, logger *logging.Logger) *SquareDeposits {
	if logger == nil {
		logger = logging.Default()
	}
	return &SquareDeposits{
		accessToken: accessToken,
		locationID:  locationID,
		redirectURL: redirectURL,
		baseURL:     "https://connect.squareup.com",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		store:       store,
		logger:      logger,
	}
}

// WithBaseURL overrides the Square API host (sandbox, tests).
func (s *SquareDeposits) WithBaseURL(baseURL string) *SquareDeposits {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// CreateDepositLink creates a hosted checkout for the deposit and stores the
// pending payment record.
func (s *SquareDeposits) CreateDepositLink(ctx context.Context, req DepositRequest) (*DepositLink, error) {
	if s.accessToken == "" || s.locationID == "" {
		return nil, fmt.Errorf("payments: square credentials not configured")
	}

	ctx, span := squareTracer.Start(ctx, "square.create_deposit_link")
	defer span.End()
	span.SetAttributes(
		attribute.String("spa.appointment_id", req.AppointmentID),
		attribute.Int("spa.amount_cents", req.AmountCents),
	)

	body := map[string]any{
		"idempotency_key": uuid.NewString(),
		"order": map[string]any{
			"location_id": s.locationID,
			"metadata": map[string]string{
				"appointment_id": req.AppointmentID,
				"customer_phone": req.CustomerPhone,
			},
			"line_items": []map[string]any{
				{
					"name":     fmt.Sprintf("%s - Deposit", req.ServiceName),
					"quantity": "1",
					"base_price_money": map[string]any{
						"amount":   req.AmountCents,
						"currency": "USD",
					},
				},
			},
		},
		"checkout_options": map[string]any{
			"redirect_url":             s.redirectURL,
			"ask_for_shipping_address": false,
		},
	}

	var parsed struct {
		PaymentLink struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"payment_link"`
	}
	if err := s.post(ctx, "/v2/online-checkout/payment-links", body, &parsed); err != nil {
		return nil, err
	}
	if parsed.PaymentLink.URL == "" {
		return nil, fmt.Errorf("payments: square response missing url")
	}

	if s.store != nil {
		rec := &Record{
			AppointmentID: req.AppointmentID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			ServiceName:   req.ServiceName,
			AmountCents:   req.AmountCents,
			PaymentLinkID: parsed.PaymentLink.ID,
			PaymentURL:    parsed.PaymentLink.URL,
		}
		if err := s.store.Save(ctx, rec); err != nil {
			// The link exists on Square's side; reconciliation of payment
			// records is manual, so surface it loudly but keep the link.
			s.logger.Error("payments: failed to persist payment record", "appointment_id", req.AppointmentID, "error", err)
		}
	}

	return &DepositLink{URL: parsed.PaymentLink.URL, LinkID: parsed.PaymentLink.ID, AmountCents: req.AmountCents}, nil
}

// RefundByAppointment refunds the deposit for an appointment if one was
// collected. A missing or never-completed payment is a skip, not an error.
func (s *SquareDeposits) RefundByAppointment(ctx context.Context, appointmentID, reason string) (*RefundResult, error) {
	if s.store == nil {
		return &RefundResult{Skipped: true, Reason: "no payment store configured"}, nil
	}
	rec, err := s.store.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if err == ErrRecordNotFound {
			return &RefundResult{Skipped: true, Reason: "no deposit on file"}, nil
		}
		return nil, err
	}
	if rec.Status == StatusRefunded {
		return &RefundResult{Skipped: true, Reason: "already refunded"}, nil
	}

	ctx, span := squareTracer.Start(ctx, "square.refund")
	defer span.End()
	span.SetAttributes(attribute.String("spa.appointment_id", appointmentID))

	paymentID, completed, err := s.completedPaymentID(ctx, rec.PaymentLinkID)
	if err != nil {
		return nil, err
	}
	if !completed {
		return &RefundResult{Skipped: true, Reason: "payment not completed"}, nil
	}

	body := map[string]any{
		"idempotency_key": uuid.NewString(),
		"amount_money": map[string]any{
			"amount":   rec.AmountCents,
			"currency": "USD",
		},
		"payment_id": paymentID,
		"reason":     reason,
	}
	var parsed struct {
		Refund struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"refund"`
	}
	if err := s.post(ctx, "/v2/refunds", body, &parsed); err != nil {
		return nil, err
	}

	if err := s.store.MarkRefunded(ctx, rec.ID, parsed.Refund.ID); err != nil {
		s.logger.Error("payments: refund issued but record update failed", "appointment_id", appointmentID, "error", err)
	}
	s.logger.Info("payments: refund processed", "appointment_id", appointmentID, "refund_id", parsed.Refund.ID)

	return &RefundResult{RefundID: parsed.Refund.ID, AmountCents: rec.AmountCents}, nil
}

// completedPaymentID walks payment link -> order -> tender to find the
// payment to refund, and whether the order actually completed.
func (s *SquareDeposits) completedPaymentID(ctx context.Context, paymentLinkID string) (string, bool, error) {
	var link struct {
		PaymentLink struct {
			OrderID string `json:"order_id"`
		} `json:"payment_link"`
	}
	if err := s.get(ctx, "/v2/online-checkout/payment-links/"+paymentLinkID, &link); err != nil {
		return "", false, err
	}

	var order struct {
		Order struct {
			State   string `json:"state"`
			Tenders []struct {
				ID string `json:"id"`
			} `json:"tenders"`
		} `json:"order"`
	}
	if err := s.get(ctx, "/v2/orders/"+link.PaymentLink.OrderID, &order); err != nil {
		return "", false, err
	}
	if order.Order.State != "COMPLETED" || len(order.Order.Tenders) == 0 {
		return "", false, nil
	}
	return order.Order.Tenders[0].ID, true, nil
}

func (s *SquareDeposits) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payments: square payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("payments: square request: %w", err)
	}
	return s.do(req, out)
}

func (s *SquareDeposits) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("payments: square request: %w", err)
	}
	return s.do(req, out)
}

func (s *SquareDeposits) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", squareVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: square http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("payments: square api status %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: square decode: %w", err)
	}
	return nil
}

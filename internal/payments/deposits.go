// Package payments handles show-up deposits: hosted Square payment links
// created at booking time and best-effort refunds on cancellation or
// completed visits.
package payments

import (
	"context"
	"time"
)

// Record is a locally persisted deposit payment.
type Record struct {
	ID            int64
	AppointmentID string
	CustomerName  string
	CustomerPhone string
	ServiceName   string
	AmountCents   int
	PaymentLinkID string
	PaymentURL    string
	Status        string // pending, completed, refunded
	RefundID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Payment record statuses.
const (
	StatusPending  = "pending"
	StatusRefunded = "refunded"
)

// DepositRequest asks for a hosted payment link for one appointment.
type DepositRequest struct {
	AppointmentID string
	CustomerName  string
	CustomerPhone string
	ServiceName   string
	AmountCents   int
}

// DepositLink is the created hosted checkout.
type DepositLink struct {
	URL         string
	LinkID      string
	AmountCents int
}

// RefundResult reports what a refund attempt did. Skipped refunds (no
// payment, payment never completed) are not errors.
type RefundResult struct {
	RefundID    string
	AmountCents int
	Skipped     bool
	Reason      string
}

// Deposits is the coordinator's view of the payment provider.
type Deposits interface {
	CreateDepositLink(ctx context.Context, req DepositRequest) (*DepositLink, error)
	RefundByAppointment(ctx context.Context, appointmentID, reason string) (*RefundResult, error)
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRecordNotFound indicates no payment record for the appointment.
var ErrRecordNotFound = errors.New("payments: record not found")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists deposit payment records.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Save inserts a new pending payment record.
func (s *Store) Save(ctx context.Context, r *Record) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = StatusPending
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO payments (appointment_id, customer_name, customer_phone, service_name,
		                      amount_cents, payment_link_id, payment_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		r.AppointmentID, r.CustomerName, r.CustomerPhone, r.ServiceName,
		r.AmountCents, r.PaymentLinkID, r.PaymentURL, r.Status, r.CreatedAt, r.UpdatedAt)
	if err := row.Scan(&r.ID); err != nil {
		return fmt.Errorf("payments: save record: %w", err)
	}
	return nil
}

// GetByAppointment returns the most recent payment record for an appointment.
func (s *Store) GetByAppointment(ctx context.Context, appointmentID string) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, appointment_id, customer_name, customer_phone, service_name,
		       amount_cents, payment_link_id, payment_url, status, refund_id, created_at, updated_at
		FROM payments
		WHERE appointment_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, appointmentID)

	var r Record
	err := row.Scan(&r.ID, &r.AppointmentID, &r.CustomerName, &r.CustomerPhone, &r.ServiceName,
		&r.AmountCents, &r.PaymentLinkID, &r.PaymentURL, &r.Status, &r.RefundID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("payments: get by appointment: %w", err)
	}
	return &r, nil
}

// MarkRefunded records a completed refund.
func (s *Store) MarkRefunded(ctx context.Context, id int64, refundID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE payments SET status = 'refunded', refund_id = $1, updated_at = $2
		WHERE id = $3`, refundID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("payments: mark refunded: %w", err)
	}
	return nil
}

package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the scheduled message queue.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

const messageColumns = `message_id, appointment_id, customer_name, customer_phone,
	       message_type, content, fire_at, status, last_error, created_at, updated_at`

// Create inserts a pending message. The partial unique index on
// (appointment_id, message_type) WHERE status = 'pending' makes a second
// schedule of the same kind a no-op rather than a duplicate.
func (s *Store) Create(ctx context.Context, m *ScheduledMessage) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = StatusPending
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO scheduled_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (appointment_id, message_type) WHERE status = 'pending' DO NOTHING`,
		m.ID, m.AppointmentID, m.CustomerName, m.CustomerPhone,
		m.Type, m.Content, m.FireAt, string(m.Status), m.LastError, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("messages: create %s: %w", m.ID, err)
	}
	return nil
}

// ListDue returns pending messages whose fire time has passed, oldest first.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE status = 'pending' AND fire_at <= $1
		ORDER BY fire_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: list due: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// List returns recent messages for inspection, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]ScheduledMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM scheduled_messages
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: list: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkSent finalizes a delivered message. Only pending rows transition.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusSent, "")
}

// MarkFailed records a delivery failure with its error.
func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.transition(ctx, id, StatusFailed, errMsg)
}

// Cancel marks one message cancelled with a reason.
func (s *Store) Cancel(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id, StatusCancelled, reason)
}

func (s *Store) transition(ctx context.Context, id string, to Status, detail string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = $1, last_error = $2, updated_at = $3
		WHERE message_id = $4 AND status = 'pending'`,
		string(to), detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("messages: mark %s %s: %w", to, id, err)
	}
	return nil
}

// CancelPendingForAppointment cancels every pending message for an
// appointment and reports how many were cancelled. Safe to repeat.
func (s *Store) CancelPendingForAppointment(ctx context.Context, appointmentID, reason string) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = 'cancelled', last_error = $1, updated_at = $2
		WHERE appointment_id = $3 AND status = 'pending'`,
		reason, time.Now().UTC(), appointmentID)
	if err != nil {
		return 0, fmt.Errorf("messages: cancel for appointment %s: %w", appointmentID, err)
	}
	return int(tag.RowsAffected()), nil
}

func scanMessages(rows pgx.Rows) ([]ScheduledMessage, error) {
	var result []ScheduledMessage
	for rows.Next() {
		var m ScheduledMessage
		var status string
		err := rows.Scan(&m.ID, &m.AppointmentID, &m.CustomerName, &m.CustomerPhone,
			&m.Type, &m.Content, &m.FireAt, &status, &m.LastError, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("messages: scan: %w", err)
		}
		m.Status = Status(status)
		result = append(result, m)
	}
	return result, rows.Err()
}

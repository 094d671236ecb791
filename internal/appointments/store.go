package appointments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
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

// Store persists appointment rows keyed by calendar event ID, plus the
// specialist rotation cursor.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `calendar_event_id, customer_name, customer_phone, service, service_name,
	       specialist, appointment_date, appointment_time, price, duration_minutes,
	       status, deposit_required, deposit_amount, payment_url, payment_link_id,
	       event_url, created_at, updated_at`

// Upsert inserts or refreshes the row for a calendar event. Used by both the
// booking path and reconciliation, so interleaving stays consistent.
func (s *Store) Upsert(ctx context.Context, a *Appointment) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusConfirmed
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (calendar_event_id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			service = EXCLUDED.service,
			service_name = EXCLUDED.service_name,
			specialist = EXCLUDED.specialist,
			appointment_date = EXCLUDED.appointment_date,
			appointment_time = EXCLUDED.appointment_time,
			price = EXCLUDED.price,
			duration_minutes = EXCLUDED.duration_minutes,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		a.EventID, a.CustomerName, a.CustomerPhone, a.Service, a.ServiceName,
		a.Specialist, a.Date, a.Time, a.Price, a.DurationMinutes,
		string(a.Status), a.DepositRequired, a.DepositAmount, a.PaymentURL, a.PaymentLinkID,
		a.EventURL, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: upsert %s: %w", a.EventID, err)
	}
	return nil
}

// GetByEventID loads one appointment, or ErrNotFound.
func (s *Store) GetByEventID(ctx context.Context, eventID string) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE calendar_event_id = $1`, eventID)

	a, err := scanAppointment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get %s: %w", eventID, err)
	}
	return a, nil
}

// UpdateFields carries a field-wise update; nil pointers are left untouched
// so reconciliation never overwrites known values with absent ones.
type UpdateFields struct {
	CustomerName    *string
	CustomerPhone   *string
	Service         *string
	ServiceName     *string
	Specialist      *string
	Date            *string
	Time            *string
	Price           *float64
	DurationMinutes *int
	Status          *Status
	EventURL        *string
	PaymentURL      *string
	PaymentLinkID   *string
}

// Update applies the non-nil fields to the row.
func (s *Store) Update(ctx context.Context, eventID string, fields UpdateFields) error {
	sets := make([]string, 0, 14)
	args := make([]any, 0, 15)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if fields.CustomerName != nil {
		add("customer_name", *fields.CustomerName)
	}
	if fields.CustomerPhone != nil {
		add("customer_phone", *fields.CustomerPhone)
	}
	if fields.Service != nil {
		add("service", *fields.Service)
	}
	if fields.ServiceName != nil {
		add("service_name", *fields.ServiceName)
	}
	if fields.Specialist != nil {
		add("specialist", *fields.Specialist)
	}
	if fields.Date != nil {
		add("appointment_date", *fields.Date)
	}
	if fields.Time != nil {
		add("appointment_time", *fields.Time)
	}
	if fields.Price != nil {
		add("price", *fields.Price)
	}
	if fields.DurationMinutes != nil {
		add("duration_minutes", *fields.DurationMinutes)
	}
	if fields.Status != nil {
		add("status", string(*fields.Status))
	}
	if fields.EventURL != nil {
		add("event_url", *fields.EventURL)
	}
	if fields.PaymentURL != nil {
		add("payment_url", *fields.PaymentURL)
	}
	if fields.PaymentLinkID != nil {
		add("payment_link_id", *fields.PaymentLinkID)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, eventID)

	query := "UPDATE appointments SET " + strings.Join(sets, ", ") +
		" WHERE calendar_event_id = $" + strconv.Itoa(len(args))
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("appointments: update %s: %w", eventID, err)
	}
	return nil
}

// MarkCancelled flips the status; cancelled rows stay for audit.
func (s *Store) MarkCancelled(ctx context.Context, eventID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'cancelled', updated_at = $1
		WHERE calendar_event_id = $2 AND status <> 'cancelled'`, time.Now().UTC(), eventID)
	if err != nil {
		return fmt.Errorf("appointments: mark cancelled %s: %w", eventID, err)
	}
	return nil
}

// ListForReconcile returns every row, past and future, for the sync pass.
// Full rows come back so the caller can diff field-wise and skip no-op
// updates.
func (s *Store) ListForReconcile(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments`)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for reconcile: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan reconcile row: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// ListUpcomingByPhone returns confirmed future appointments for a phone
// number, soonest first.
func (s *Store) ListUpcomingByPhone(ctx context.Context, phone, fromDate string) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1 AND status = 'confirmed' AND appointment_date >= $2
		ORDER BY appointment_date, appointment_time`, phone, fromDate)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by phone: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan by phone: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// AdvanceRotationCursor atomically advances the persisted round-robin cursor
// modulo the roster size and returns the index to assign. The row update is
// the serialization point, so two concurrent bookings never see the same
// cursor value.
func (s *Store) AdvanceRotationCursor(ctx context.Context, rosterSize int) (int, error) {
	if rosterSize <= 0 {
		return 0, fmt.Errorf("appointments: rotation roster size %d", rosterSize)
	}
	row := s.db.QueryRow(ctx, `
		UPDATE rotation_state SET cursor = (cursor + 1) % $1, updated_at = $2
		WHERE id = 1
		RETURNING cursor`, rosterSize, time.Now().UTC())

	var next int
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("appointments: advance rotation cursor: %w", err)
	}
	return (next - 1 + rosterSize) % rosterSize, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(
		&a.EventID, &a.CustomerName, &a.CustomerPhone, &a.Service, &a.ServiceName,
		&a.Specialist, &a.Date, &a.Time, &a.Price, &a.DurationMinutes,
		&status, &a.DepositRequired, &a.DepositAmount, &a.PaymentURL, &a.PaymentLinkID,
		&a.EventURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

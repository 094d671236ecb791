package catalog

import (
	"context"
	"fmt"
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

// Store is the Postgres-backed catalog provider.
type Store struct {
	db DB
}

// NewStore creates a catalog store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ServiceByName resolves a service case-insensitively.
func (s *Store) ServiceByName(ctx context.Context, name string) (*Service, error) {
	row := s.db.QueryRow(ctx, `
		SELECT name, price, duration_minutes, requires_deposit, deposit_amount, COALESCE(description, '')
		FROM services
		WHERE LOWER(name) = LOWER($1) AND active`, strings.TrimSpace(name))

	var svc Service
	err := row.Scan(&svc.Name, &svc.Price, &svc.DurationMinutes, &svc.RequiresDeposit, &svc.DepositAmount, &svc.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: service by name: %w", err)
	}
	return &svc, nil
}

// Services lists the active service menu.
func (s *Store) Services(ctx context.Context) ([]Service, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, price, duration_minutes, requires_deposit, deposit_amount, COALESCE(description, '')
		FROM services
		WHERE active
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.Name, &svc.Price, &svc.DurationMinutes, &svc.RequiresDeposit, &svc.DepositAmount, &svc.Description); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// ActiveStaffNames returns the current roster in rotation order.
func (s *Store) ActiveStaffNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name FROM staff
		WHERE active
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: active staff: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("catalog: scan staff: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Template fetches a message template by type.
func (s *Store) Template(ctx context.Context, templateType string) (*Template, error) {
	row := s.db.QueryRow(ctx, `
		SELECT template_type, content, enabled, hours_before, min_advance_hours, hours_after
		FROM message_templates
		WHERE template_type = $1`, templateType)

	var t Template
	err := row.Scan(&t.Type, &t.Content, &t.Enabled, &t.HoursBefore, &t.MinAdvanceHours, &t.HoursAfter)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("catalog: template %s: %w", templateType, err)
	}
	return &t, nil
}

// Hours returns the opening window for a weekday. A missing row means closed.
func (s *Store) Hours(ctx context.Context, weekday time.Weekday) (DayHours, error) {
	row := s.db.QueryRow(ctx, `
		SELECT open_minutes, close_minutes
		FROM business_hours
		WHERE weekday = $1 AND NOT closed`, int(weekday))

	var h DayHours
	err := row.Scan(&h.OpenMins, &h.CloseMins)
	if err != nil {
		if err == pgx.ErrNoRows {
			return DayHours{Closed: true}, nil
		}
		return DayHours{}, fmt.Errorf("catalog: hours for %s: %w", weekday, err)
	}
	return h, nil
}

// Package catalog exposes the clinic's configuration: the service menu,
// active staff roster, message templates, and business hours. The scheduling
// core depends on this interface, never on hardcoded lists — services and
// staff change from the dashboard at any time.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrServiceNotFound  = errors.New("catalog: service not found")
	ErrTemplateNotFound = errors.New("catalog: template not found")
)

// Service is one entry from the clinic's service menu.
type Service struct {
	Name            string
	Price           float64
	DurationMinutes int
	RequiresDeposit bool
	DepositAmount   float64
	Description     string
}

// Template types used by the scheduling flows.
const (
	TemplateReminder24h       = "reminder_24h"
	TemplateThankYou          = "thank_you"
	TemplateConfirmation      = "appointment_confirmation"
	TemplateCancellationOK    = "cancellation_confirmation"
	TemplateRefundNotice      = "refund_notification"
)

// Template is an outbound message template with its scheduling conditions.
type Template struct {
	Type    string
	Content string
	Enabled bool

	// HoursBefore is how long before the appointment a reminder fires.
	HoursBefore int
	// MinAdvanceHours is the minimum booking lead time required before a
	// reminder is scheduled at all.
	MinAdvanceHours int
	// HoursAfter is how long after the appointment ends a follow-up fires.
	HoursAfter int
}

// DayHours is one weekday's opening window. Times are minutes from midnight
// in the clinic's timezone.
type DayHours struct {
	Closed    bool
	OpenMins  int
	CloseMins int
}

// Provider reads the clinic's current configuration.
type Provider interface {
	ServiceByName(ctx context.Context, name string) (*Service, error)
	Services(ctx context.Context) ([]Service, error)
	ActiveStaffNames(ctx context.Context) ([]string, error)
	Template(ctx context.Context, templateType string) (*Template, error)
	Hours(ctx context.Context, weekday time.Weekday) (DayHours, error)
}

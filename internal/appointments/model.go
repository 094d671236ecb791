// Package appointments implements the booking coordinator: availability
// computation, round-robin specialist assignment, idempotent booking against
// the calendar of record, and policy-checked cancellation.
package appointments

import (
	"fmt"
	"time"
)

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Date and time-of-day layouts used throughout the scheduling core. Wall
// clock values are local to the clinic's timezone.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment is the local record of a calendar event. The calendar event ID
// is the primary key; the external calendar stays authoritative for existence
// and time, and rows are never hard-deleted.
type Appointment struct {
	EventID         string     `json:"event_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	Service         string     `json:"service"`
	ServiceName     string     `json:"service_name"`
	Specialist      string     `json:"specialist,omitempty"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	Price           float64    `json:"price"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	DepositRequired bool       `json:"deposit_required"`
	DepositAmount   float64    `json:"deposit_amount,omitempty"`
	PaymentURL      string     `json:"payment_url,omitempty"`
	PaymentLinkID   string     `json:"payment_link_id,omitempty"`
	EventURL        string     `json:"event_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StartsAt resolves the appointment's wall-clock start in the given location.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return ParseDateTime(a.Date, a.Time, loc)
}

// EndsAt is StartsAt plus the service duration.
func (a *Appointment) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := a.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.DurationMinutes) * time.Minute), nil
}

// ParseDateTime combines a date and a time-of-day into a local time.
func ParseDateTime(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointments: parse %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

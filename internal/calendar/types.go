package calendar

import (
	"errors"
	"time"
)

// ErrEventNotFound indicates the event does not exist on the calendar.
var ErrEventNotFound = errors.New("calendar: event not found")

// Event statuses as reported by the calendar of record.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// EventMetadata carries the structured appointment details written onto a
// calendar event at create time and read back during reconciliation. Pointer
// fields distinguish "absent" from zero so sync never overwrites with blanks.
type EventMetadata struct {
	CustomerName  string
	CustomerPhone string
	Service       string
	Specialist    string
	Price         *float64
	Duration      *int
}

// Event is a provider-neutral view of a calendar event.
type Event struct {
	ID          string
	Summary     string
	Description string
	Status      string
	URL         string
	Start       time.Time
	End         time.Time
	Metadata    EventMetadata
}

// CreateEventInput describes a new appointment event.
type CreateEventInput struct {
	Summary  string
	Start    time.Time
	End      time.Time
	Metadata EventMetadata
}

// CreatedEvent is returned by CreateEvent.
type CreatedEvent struct {
	ID  string
	URL string
}

package calendar

import (
	"context"
	"time"
)

// Provider is the calendar of record. The external calendar, not the local
// store, is authoritative for event existence and time; every implementation
// must honor that.
type Provider interface {
	// ListEvents returns all events between timeMin and timeMax. When
	// includeCancelled is true, events deleted or cancelled on the provider
	// side are returned with StatusCancelled so reconciliation can see them.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, includeCancelled bool) ([]Event, error)

	// CreateEvent books a new event. This call is the true serialization
	// point for slot contention.
	CreateEvent(ctx context.Context, input CreateEventInput) (*CreatedEvent, error)

	// DeleteEvent removes an event. Deleting an already-deleted event
	// returns ErrEventNotFound.
	DeleteEvent(ctx context.Context, eventID string) error

	// GetEvent fetches a single event, or ErrEventNotFound.
	GetEvent(ctx context.Context, eventID string) (*Event, error)

	// EventExists reports whether the event is still live. Transient provider
	// errors report true so callers never cancel work on a flaky read.
	EventExists(ctx context.Context, eventID string) bool
}

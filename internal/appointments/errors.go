package appointments

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no local appointment row for the given event ID.
var ErrNotFound = errors.New("appointments: not found")

// ValidationError rejects malformed or unknown input before any side effect.
type ValidationError struct {
	Msg               string
	AvailableServices []string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError means the requested slot was taken by the time the calendar
// was consulted. Alternatives carry nearby free slots for the caller to offer.
type ConflictError struct {
	Date         string
	Time         string
	Alternatives []Slot
	Remaining    int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointments: slot %s %s not available", e.Date, e.Time)
}

// PolicyError denies an operation on business-policy grounds, with enough
// detail for a human-readable explanation.
type PolicyError struct {
	Reason         string
	HoursRemaining float64
}

func (e *PolicyError) Error() string { return "appointments: " + e.Reason }

// ExternalError wraps a collaborator failure (calendar, payment, SMS). The
// operation name identifies which boundary failed.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("appointments: %s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

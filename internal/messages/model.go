// Package messages implements the persisted delayed-message queue: reminders
// and follow-ups scheduled at booking time, stored in Postgres, and fired by
// a polling runner. Content is rendered once at schedule time so a message
// reads exactly as the appointment looked when it was booked.
package messages

import (
	"fmt"
	"time"
)

// Status is the lifecycle of a scheduled message. Transitions are one-way:
// pending is the only non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Message types. These double as catalog template types.
const (
	TypeReminder = "reminder_24h"
	TypeThankYou = "thank_you"
)

// ScheduledMessage is one queued outbound SMS.
type ScheduledMessage struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	FireAt        time.Time `json:"fire_at"`
	Status        Status    `json:"status"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MessageID builds the deterministic ID for a scheduled message. Scheduling
// the same message for the same appointment at the same fire time always
// yields the same ID, which keeps retried scheduling idempotent.
func MessageID(msgType, appointmentID string, fireAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d", msgType, appointmentID, fireAt.Unix())
}

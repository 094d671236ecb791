package appointments

import (
	"fmt"
	"time"
)

// CancellationPolicy enforces the clinic's advance-notice requirement.
type CancellationPolicy struct {
	Notice time.Duration
	Loc    *time.Location
}

// NewCancellationPolicy builds the policy with the given notice window.
func NewCancellationPolicy(noticeHours int, loc *time.Location) CancellationPolicy {
	if noticeHours <= 0 {
		noticeHours = 24
	}
	return CancellationPolicy{Notice: time.Duration(noticeHours) * time.Hour, Loc: loc}
}

// Validate checks whether the appointment may still be cancelled at now.
// Past appointments and appointments inside the notice window return a
// PolicyError carrying the remaining hours for customer messaging.
func (p CancellationPolicy) Validate(appt *Appointment, now time.Time) error {
	startsAt, err := appt.StartsAt(p.Loc)
	if err != nil {
		return fmt.Errorf("appointments: cancellation timing: %w", err)
	}
	remaining := startsAt.Sub(now)
	if remaining <= 0 {
		return &PolicyError{Reason: "appointment is in the past"}
	}
	if remaining < p.Notice {
		return &PolicyError{
			Reason:         fmt.Sprintf("cancellations require %d hours notice", int(p.Notice.Hours())),
			HoursRemaining: remaining.Hours(),
		}
	}
	return nil
}

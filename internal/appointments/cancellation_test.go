package appointments

import (
	"errors"
	"testing"
	"time"
)

func TestCancellationPolicy(t *testing.T) {
	policy := NewCancellationPolicy(24, testLoc)
	appt := &Appointment{Date: "2026-09-10", Time: "14:00"}
	start := time.Date(2026, 9, 10, 14, 0, 0, 0, testLoc)

	tests := []struct {
		name    string
		now     time.Time
		allowed bool
		reason  string
	}{
		{"well in advance", start.Add(-48 * time.Hour), true, ""},
		{"exactly at the boundary", start.Add(-24 * time.Hour), true, ""},
		{"inside the window", start.Add(-2 * time.Hour), false, "notice"},
		{"already started", start.Add(time.Minute), false, "past"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(appt, tc.now)
			if tc.allowed {
				if err != nil {
					t.Fatalf("Validate: %v, want allowed", err)
				}
				return
			}
			var pe *PolicyError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want PolicyError", err)
			}
		})
	}
}

func TestCancellationPolicyReportsRemainingHours(t *testing.T) {
	policy := NewCancellationPolicy(24, testLoc)
	appt := &Appointment{Date: "2026-09-10", Time: "14:00"}
	now := time.Date(2026, 9, 10, 2, 0, 0, 0, testLoc) // 12h out

	var pe *PolicyError
	if err := policy.Validate(appt, now); !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PolicyError", err)
	}
	if pe.HoursRemaining < 11.9 || pe.HoursRemaining > 12.1 {
		t.Fatalf("HoursRemaining = %v, want ~12", pe.HoursRemaining)
	}
}

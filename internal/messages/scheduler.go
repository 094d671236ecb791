package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Scheduler creates and cancels the delayed messages attached to an
// appointment. Content renders at schedule time from the current catalog
// templates.
type Scheduler struct {
	store    *Store
	catalog  catalog.Provider
	renderer Renderer
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

func NewScheduler(store *Store, cat catalog.Provider, loc *time.Location, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, catalog: cat, loc: loc, now: time.Now, logger: logger}
}

// ScheduleForAppointment queues the reminder and the thank-you follow-up.
// A disabled or missing template skips its message; a reminder is only
// scheduled when the appointment was booked far enough in advance.
func (s *Scheduler) ScheduleForAppointment(ctx context.Context, appt *appointments.Appointment) error {
	start, err := appt.StartsAt(s.loc)
	if err != nil {
		return fmt.Errorf("messages: schedule for %s: %w", appt.EventID, err)
	}

	if err := s.scheduleReminder(ctx, appt, start); err != nil {
		return err
	}
	return s.scheduleThankYou(ctx, appt, start)
}

func (s *Scheduler) scheduleReminder(ctx context.Context, appt *appointments.Appointment, start time.Time) error {
	tpl, err := s.catalog.Template(ctx, TypeReminder)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			s.logger.Info("reminder template not found, skipping", "appointment_id", appt.EventID)
			return nil
		}
		return fmt.Errorf("messages: reminder template: %w", err)
	}
	if !tpl.Enabled {
		return nil
	}

	bookedAt := appt.CreatedAt
	if bookedAt.IsZero() {
		bookedAt = s.now()
	}
	advance := start.Sub(bookedAt)
	minAdvance := time.Duration(tpl.MinAdvanceHours) * time.Hour
	if advance < minAdvance {
		s.logger.Info("booked too close to appointment, skipping reminder",
			"appointment_id", appt.EventID, "advance_hours", advance.Hours())
		return nil
	}

	fireAt := start.Add(-time.Duration(tpl.HoursBefore) * time.Hour)
	return s.create(ctx, appt, TypeReminder, tpl, fireAt)
}

func (s *Scheduler) scheduleThankYou(ctx context.Context, appt *appointments.Appointment, start time.Time) error {
	tpl, err := s.catalog.Template(ctx, TypeThankYou)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			s.logger.Info("thank-you template not found, skipping", "appointment_id", appt.EventID)
			return nil
		}
		return fmt.Errorf("messages: thank-you template: %w", err)
	}
	if !tpl.Enabled {
		return nil
	}

	fireAt := start.
		Add(time.Duration(appt.DurationMinutes) * time.Minute).
		Add(time.Duration(tpl.HoursAfter) * time.Hour)
	return s.create(ctx, appt, TypeThankYou, tpl, fireAt)
}

func (s *Scheduler) create(ctx context.Context, appt *appointments.Appointment, msgType string, tpl *catalog.Template, fireAt time.Time) error {
	data, err := BuildTemplateData(appt, s.loc)
	if err != nil {
		return fmt.Errorf("messages: template data for %s: %w", appt.EventID, err)
	}
	content, err := s.renderer.Render(msgType, tpl.Content, data)
	if err != nil {
		return err
	}

	msg := &ScheduledMessage{
		ID:            MessageID(msgType, appt.EventID, fireAt),
		AppointmentID: appt.EventID,
		CustomerName:  appt.CustomerName,
		CustomerPhone: appt.CustomerPhone,
		Type:          msgType,
		Content:       content,
		FireAt:        fireAt,
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("message scheduled", "message_id", msg.ID, "fire_at", fireAt)
	return nil
}

// CancelForAppointment cancels every pending message for the appointment.
// Repeating the call is harmless.
func (s *Scheduler) CancelForAppointment(ctx context.Context, appointmentID string) (int, error) {
	n, err := s.store.CancelPendingForAppointment(ctx, appointmentID, "appointment cancelled")
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("cancelled scheduled messages", "appointment_id", appointmentID, "count", n)
	}
	return n, nil
}

// RescheduleForAppointment moves an appointment's messages after a time
// change: cancel the old set, schedule a fresh one. A reschedule to the same
// date and time is a no-op.
func (s *Scheduler) RescheduleForAppointment(ctx context.Context, appt *appointments.Appointment, oldDate, oldTime string) error {
	if appt.Date == oldDate && appt.Time == oldTime {
		return nil
	}
	if _, err := s.store.CancelPendingForAppointment(ctx, appt.EventID, "appointment rescheduled"); err != nil {
		return err
	}
	return s.ScheduleForAppointment(ctx, appt)
}

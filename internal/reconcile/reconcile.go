// Package reconcile keeps local appointment state consistent with the
// calendar of record. The calendar wins every disagreement: events cancelled
// or moved there are applied locally, and local rows with no matching event
// are treated as externally deleted.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/observability/metrics"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// MessageScheduler is the slice of the message queue reconciliation touches.
type MessageScheduler interface {
	CancelForAppointment(ctx context.Context, appointmentID string) (int, error)
	RescheduleForAppointment(ctx context.Context, appt *appointments.Appointment, oldDate, oldTime string) error
}

// Summary counts what one pass changed.
type Summary struct {
	EventsSeen  int `json:"events_seen"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Rescheduled int `json:"rescheduled"`
	Cancelled   int `json:"cancelled"`
}

// Reconciler performs the periodic two-way comparison.
type Reconciler struct {
	store     *appointments.Store
	calendar  calendar.Provider
	scheduler MessageScheduler
	metrics   *metrics.SchedulingMetrics

	window time.Duration
	// grace protects rows booked moments ago that the calendar snapshot may
	// not include yet.
	grace  time.Duration
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

// Config carries the reconciler's knobs.
type Config struct {
	WindowDays int
	Grace      time.Duration
	Location   *time.Location
}

func New(store *appointments.Store, cal calendar.Provider, scheduler MessageScheduler, m *metrics.SchedulingMetrics, cfg Config, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 365
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{
		store:     store,
		calendar:  cal,
		scheduler: scheduler,
		metrics:   m,
		window:    time.Duration(windowDays) * 24 * time.Hour,
		grace:     grace,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// ReconcileOnce runs a single pass. A second pass with no external changes
// applies nothing.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (*Summary, error) {
	now := r.now()
	events, err := r.calendar.ListEvents(ctx, now.Add(-r.window), now.Add(r.window), true)
	if err != nil {
		r.metrics.ObserveReconcileRun("error")
		return nil, fmt.Errorf("reconcile: list events: %w", err)
	}

	local, err := r.store.ListForReconcile(ctx)
	if err != nil {
		r.metrics.ObserveReconcileRun("error")
		return nil, err
	}
	localByID := make(map[string]appointments.Appointment, len(local))
	for _, row := range local {
		localByID[row.EventID] = row
	}
	eventIDs := make(map[string]bool, len(events))
	for _, e := range events {
		eventIDs[e.ID] = true
	}

	summary := &Summary{EventsSeen: len(events)}
	for _, event := range events {
		if err := r.applyEvent(ctx, event, localByID, summary); err != nil {
			// One bad event must not abort the pass.
			r.logger.Error("reconcile: event apply failed", "event_id", event.ID, "error", err)
		}
	}

	for _, row := range local {
		if eventIDs[row.EventID] || row.Status == appointments.StatusCancelled {
			continue
		}
		if now.Sub(row.CreatedAt) < r.grace {
			r.logger.Debug("reconcile: skipping fresh row inside grace window", "event_id", row.EventID)
			continue
		}
		r.logger.Info("reconcile: local appointment missing from calendar, cancelling", "event_id", row.EventID)
		if err := r.cancelLocal(ctx, row.EventID); err != nil {
			r.logger.Error("reconcile: cancel failed", "event_id", row.EventID, "error", err)
			continue
		}
		summary.Cancelled++
	}

	r.metrics.ObserveReconcileRun("ok")
	if summary.Created+summary.Updated+summary.Rescheduled+summary.Cancelled > 0 {
		r.logger.Info("reconcile: pass complete",
			"events", summary.EventsSeen, "created", summary.Created,
			"updated", summary.Updated, "rescheduled", summary.Rescheduled,
			"cancelled", summary.Cancelled)
	}
	return summary, nil
}

func (r *Reconciler) applyEvent(ctx context.Context, event calendar.Event, localByID map[string]appointments.Appointment, summary *Summary) error {
	localRow, exists := localByID[event.ID]

	if event.Status == calendar.StatusCancelled {
		if !exists || localRow.Status == appointments.StatusCancelled {
			return nil
		}
		if err := r.cancelLocal(ctx, event.ID); err != nil {
			return err
		}
		summary.Cancelled++
		return nil
	}

	meta := event.Metadata
	date, timeOfDay := r.eventWallClock(event)

	if !exists {
		appt := r.appointmentFromEvent(event, meta, date, timeOfDay)
		if err := r.store.Upsert(ctx, appt); err != nil {
			return err
		}
		r.metrics.ObserveReconcileAction("created")
		summary.Created++
		return nil
	}

	fields := diffFields(event, meta, date, timeOfDay, localRow)
	timeChanged := date != "" && timeOfDay != "" &&
		(localRow.Date != date || localRow.Time != timeOfDay)
	if localRow.Status == appointments.StatusCancelled {
		// The event is live again on the calendar; the calendar wins.
		confirmed := appointments.StatusConfirmed
		fields.Status = &confirmed
	}

	if changed := fields != (appointments.UpdateFields{}); changed {
		if err := r.store.Update(ctx, event.ID, fields); err != nil {
			return err
		}
		r.metrics.ObserveReconcileAction("updated")
		summary.Updated++
	}

	if timeChanged && r.scheduler != nil {
		appt, err := r.store.GetByEventID(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("reconcile: reload for reschedule: %w", err)
		}
		if err := r.scheduler.RescheduleForAppointment(ctx, appt, localRow.Date, localRow.Time); err != nil {
			return fmt.Errorf("reconcile: reschedule messages: %w", err)
		}
		r.metrics.ObserveReconcileAction("rescheduled")
		summary.Rescheduled++
	}
	return nil
}

func (r *Reconciler) cancelLocal(ctx context.Context, eventID string) error {
	if err := r.store.MarkCancelled(ctx, eventID); err != nil {
		return err
	}
	r.metrics.ObserveReconcileAction("cancelled")
	if r.scheduler != nil {
		if _, err := r.scheduler.CancelForAppointment(ctx, eventID); err != nil {
			r.logger.Error("reconcile: message cancellation failed", "event_id", eventID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) eventWallClock(event calendar.Event) (date, timeOfDay string) {
	if event.Start.IsZero() {
		return "", ""
	}
	local := event.Start.In(r.loc)
	return local.Format(appointments.DateLayout), local.Format(appointments.TimeLayout)
}

func (r *Reconciler) appointmentFromEvent(event calendar.Event, meta calendar.EventMetadata, date, timeOfDay string) *appointments.Appointment {
	appt := &appointments.Appointment{
		EventID:       event.ID,
		CustomerName:  meta.CustomerName,
		CustomerPhone: appointments.FormatPhoneE164(meta.CustomerPhone),
		Service:       meta.Service,
		ServiceName:   firstNonEmpty(event.Summary, meta.Service),
		Specialist:    meta.Specialist,
		Date:          date,
		Time:          timeOfDay,
		Status:        appointments.StatusConfirmed,
		EventURL:      event.URL,
	}
	if meta.Price != nil {
		appt.Price = *meta.Price
	}
	if meta.Duration != nil {
		appt.DurationMinutes = *meta.Duration
	}
	return appt
}

// diffFields builds a field-wise update: absent metadata leaves the local
// value untouched, and values already matching write nothing, so a pass over
// unchanged state stays write-free.
func diffFields(event calendar.Event, meta calendar.EventMetadata, date, timeOfDay string, local appointments.Appointment) appointments.UpdateFields {
	var fields appointments.UpdateFields
	if meta.CustomerName != "" && meta.CustomerName != local.CustomerName {
		fields.CustomerName = &meta.CustomerName
	}
	if meta.CustomerPhone != "" {
		if phone := appointments.FormatPhoneE164(meta.CustomerPhone); phone != local.CustomerPhone {
			fields.CustomerPhone = &phone
		}
	}
	if meta.Service != "" && meta.Service != local.Service {
		fields.Service = &meta.Service
	}
	if meta.Specialist != "" && meta.Specialist != local.Specialist {
		fields.Specialist = &meta.Specialist
	}
	if meta.Price != nil && *meta.Price != local.Price {
		fields.Price = meta.Price
	}
	if meta.Duration != nil && *meta.Duration != local.DurationMinutes {
		fields.DurationMinutes = meta.Duration
	}
	if date != "" && timeOfDay != "" && (date != local.Date || timeOfDay != local.Time) {
		fields.Date = &date
		fields.Time = &timeOfDay
	}
	if event.Summary != "" && event.Summary != local.ServiceName {
		fields.ServiceName = &event.Summary
	}
	if event.URL != "" && event.URL != local.EventURL {
		fields.EventURL = &event.URL
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

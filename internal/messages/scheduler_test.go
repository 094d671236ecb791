package messages

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
)

func testAppointment(loc *time.Location, bookedHoursBefore int) *appointments.Appointment {
	start := time.Date(2026, 9, 10, 14, 0, 0, 0, loc)
	return &appointments.Appointment{
		EventID:         "evt_1",
		CustomerName:    "Jane Doe",
		CustomerPhone:   "+15551234567",
		ServiceName:     "Botox",
		Specialist:      "Alexis",
		Date:            "2026-09-10",
		Time:            "14:00",
		Price:           350,
		DurationMinutes: 60,
		CreatedAt:       start.Add(-time.Duration(bookedHoursBefore) * time.Hour).UTC(),
	}
}

func TestScheduleForAppointmentCreatesBothMessages(t *testing.T) {
	loc := nyLoc(t)
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	start := time.Date(2026, 9, 10, 14, 0, 0, 0, loc)
	reminderAt := start.Add(-24 * time.Hour)
	thankYouAt := start.Add(60 * time.Minute).Add(time.Hour)

	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(MessageID(TypeReminder, "evt_1", reminderAt), "evt_1", "Jane Doe", "+15551234567",
			TypeReminder, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(MessageID(TypeThankYou, "evt_1", thankYouAt), "evt_1", "Jane Doe", "+15551234567",
			TypeThankYou, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sched := NewScheduler(NewStore(mock), newFakeCatalog(), loc, nil)
	if err := sched.ScheduleForAppointment(context.Background(), testAppointment(loc, 48)); err != nil {
		t.Fatalf("ScheduleForAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScheduleSkipsReminderWhenBookedTooLate(t *testing.T) {
	loc := nyLoc(t)
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	// Only the thank-you insert: 10 hours advance is under the 30h minimum.
	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), "evt_1", "Jane Doe", "+15551234567",
			TypeThankYou, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sched := NewScheduler(NewStore(mock), newFakeCatalog(), loc, nil)
	if err := sched.ScheduleForAppointment(context.Background(), testAppointment(loc, 10)); err != nil {
		t.Fatalf("ScheduleForAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScheduleSkipsDisabledTemplate(t *testing.T) {
	loc := nyLoc(t)
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	cat := newFakeCatalog()
	tpl := cat.templates[TypeReminder]
	tpl.Enabled = false
	cat.templates[TypeReminder] = tpl

	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), "evt_1", "Jane Doe", "+15551234567",
			TypeThankYou, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sched := NewScheduler(NewStore(mock), cat, loc, nil)
	if err := sched.ScheduleForAppointment(context.Background(), testAppointment(loc, 48)); err != nil {
		t.Fatalf("ScheduleForAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRescheduleSameTimeIsNoop(t *testing.T) {
	loc := nyLoc(t)
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	sched := NewScheduler(NewStore(mock), newFakeCatalog(), loc, nil)
	appt := testAppointment(loc, 48)
	if err := sched.RescheduleForAppointment(context.Background(), appt, appt.Date, appt.Time); err != nil {
		t.Fatalf("RescheduleForAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRescheduleCancelsThenCreates(t *testing.T) {
	loc := nyLoc(t)
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE scheduled_messages SET status = 'cancelled'").
		WithArgs("appointment rescheduled", pgxmock.AnyArg(), "evt_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), "evt_1", "Jane Doe", "+15551234567",
			TypeReminder, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), "evt_1", "Jane Doe", "+15551234567",
			TypeThankYou, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sched := NewScheduler(NewStore(mock), newFakeCatalog(), loc, nil)
	appt := testAppointment(loc, 48)
	if err := sched.RescheduleForAppointment(context.Background(), appt, "2026-09-10", "11:00"); err != nil {
		t.Fatalf("RescheduleForAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

package catalog

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestServiceByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name", "price", "duration_minutes", "requires_deposit", "deposit_amount", "description"}).
		AddRow("Botox Injections", 350.0, 45, true, 50.0, "")
	mock.ExpectQuery("SELECT name, price, duration_minutes").WithArgs("botox injections").WillReturnRows(rows)

	store := NewStore(mock)
	svc, err := store.ServiceByName(context.Background(), "botox injections")
	if err != nil {
		t.Fatalf("service by name: %v", err)
	}
	if svc.Name != "Botox Injections" || svc.DurationMinutes != 45 || !svc.RequiresDeposit {
		t.Errorf("unexpected service %+v", svc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestServiceByNameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT name, price, duration_minutes").
		WithArgs("cryotherapy").
		WillReturnRows(pgxmock.NewRows([]string{"name", "price", "duration_minutes", "requires_deposit", "deposit_amount", "description"}))

	store := NewStore(mock)
	_, err = store.ServiceByName(context.Background(), "cryotherapy")
	if err != ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestHoursClosedDay(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT open_minutes, close_minutes").
		WithArgs(int(time.Sunday)).
		WillReturnRows(pgxmock.NewRows([]string{"open_minutes", "close_minutes"}))

	store := NewStore(mock)
	h, err := store.Hours(context.Background(), time.Sunday)
	if err != nil {
		t.Fatalf("hours: %v", err)
	}
	if !h.Closed {
		t.Error("expected Sunday to be closed")
	}
}

func TestActiveStaffNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name"}).AddRow("Alex").AddRow("Morgan").AddRow("Riley")
	mock.ExpectQuery("SELECT name FROM staff").WillReturnRows(rows)

	store := NewStore(mock)
	names, err := store.ActiveStaffNames(context.Background())
	if err != nil {
		t.Fatalf("active staff: %v", err)
	}
	if len(names) != 3 || names[0] != "Alex" {
		t.Errorf("unexpected roster %v", names)
	}
}

func TestTemplate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"template_type", "content", "enabled", "hours_before", "min_advance_hours", "hours_after"}).
		AddRow(TemplateReminder24h, "Hi {{.Name}}, see you {{.Date}} at {{.Time}}!", true, 24, 30, 0)
	mock.ExpectQuery("SELECT template_type, content, enabled").WithArgs(TemplateReminder24h).WillReturnRows(rows)

	store := NewStore(mock)
	tmpl, err := store.Template(context.Background(), TemplateReminder24h)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !tmpl.Enabled || tmpl.HoursBefore != 24 || tmpl.MinAdvanceHours != 30 {
		t.Errorf("unexpected template %+v", tmpl)
	}
}

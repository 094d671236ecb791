package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
)

type fakeCalendar struct {
	events []calendar.Event
}

func (f *fakeCalendar) ListEvents(_ context.Context, _, _ time.Time, _ bool) ([]calendar.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ calendar.CreateEventInput) (*calendar.CreatedEvent, error) {
	return &calendar.CreatedEvent{ID: "evt_new"}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string) error { return nil }

func (f *fakeCalendar) GetEvent(_ context.Context, _ string) (*calendar.Event, error) {
	return nil, calendar.ErrEventNotFound
}

func (f *fakeCalendar) EventExists(_ context.Context, _ string) bool { return true }

type fakeCatalog struct{}

func (fakeCatalog) ServiceByName(_ context.Context, name string) (*catalog.Service, error) {
	if name == "Botox" {
		return &catalog.Service{Name: "Botox", Price: 350, DurationMinutes: 60}, nil
	}
	return nil, catalog.ErrServiceNotFound
}

func (fakeCatalog) Services(_ context.Context) ([]catalog.Service, error) {
	return []catalog.Service{{Name: "Botox", Price: 350, DurationMinutes: 60}}, nil
}

func (fakeCatalog) ActiveStaffNames(_ context.Context) ([]string, error) {
	return []string{"Alexis", "Brianna"}, nil
}

func (fakeCatalog) Template(_ context.Context, _ string) (*catalog.Template, error) {
	return nil, catalog.ErrTemplateNotFound
}

func (fakeCatalog) Hours(_ context.Context, weekday time.Weekday) (catalog.DayHours, error) {
	if weekday == time.Saturday || weekday == time.Sunday {
		return catalog.DayHours{Closed: true}, nil
	}
	return catalog.DayHours{OpenMins: 9 * 60, CloseMins: 17 * 60}, nil
}

func newTestHandler(t *testing.T) (*SchedulingHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	cal := &fakeCalendar{}
	cat := fakeCatalog{}
	store := appointments.NewStore(mock)
	calc := appointments.NewCalculator(cal, cat, loc, 60, nil)
	svc := appointments.NewService(appointments.ServiceParams{
		Store:      store,
		Calculator: calc,
		Rotator:    appointments.NewRotator(cat, store, nil),
		Policy:     appointments.NewCancellationPolicy(24, loc),
		Calendar:   cal,
		Catalog:    cat,
		Location:   loc,
	})
	return NewSchedulingHandler(svc, calc, nil), mock
}

func TestAvailabilityRequiresParams(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability?date=2026-09-07", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAvailabilityReturnsSpread(t *testing.T) {
	h, _ := newTestHandler(t)

	// Monday, 9-17, 60-minute service: eight open slots, five suggested.
	req := httptest.NewRequest(http.MethodGet, "/availability?date=2026-09-07&service=Botox", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Open {
		t.Fatalf("expected open day")
	}
	if len(resp.Slots) != 8 {
		t.Fatalf("slots = %d, want 8", len(resp.Slots))
	}
	if len(resp.Suggested) != 5 || resp.Remaining != 3 {
		t.Fatalf("suggested = %d remaining = %d, want 5 and 3", len(resp.Suggested), resp.Remaining)
	}
	if resp.Slots[0].Time != "09:00" || resp.Slots[0].Conversational != "9:00 AM" {
		t.Fatalf("unexpected first slot: %+v", resp.Slots[0])
	}
}

func TestAvailabilityPreferredTime(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability?date=2026-09-07&service=Botox&preferred_time=10:15am", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ClosestBefore == nil || resp.ClosestBefore.Time != "10:00" {
		t.Fatalf("closest before = %+v, want 10:00", resp.ClosestBefore)
	}
	if resp.ClosestAfter == nil || resp.ClosestAfter.Time != "11:00" {
		t.Fatalf("closest after = %+v, want 11:00", resp.ClosestAfter)
	}
	if len(resp.Suggested) != 0 {
		t.Fatalf("expected no spread with preferred time")
	}
}

func TestBookUnknownServiceListsMenu(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"name":"Jane Doe","phone":"555-123-4567","date":"2026-09-07","time":"10:00","service":"Unicorn Wrap"}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Error             string   `json:"error"`
		AvailableServices []string `json:"available_services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.AvailableServices) != 1 || resp.AvailableServices[0] != "Botox" {
		t.Fatalf("available_services = %v", resp.AvailableServices)
	}
}

func TestCancelNotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs("evt_missing").
		WillReturnRows(pgxmock.NewRows([]string{"calendar_event_id"}))

	rec := httptest.NewRecorder()
	h.Cancel(rec, cancelRequest("evt_missing"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCancelInsideNoticeWindow(t *testing.T) {
	h, mock := newTestHandler(t)

	// Appointment two hours from now: inside the 24h notice window.
	loc, _ := time.LoadLocation("America/New_York")
	soon := time.Now().In(loc).Add(2 * time.Hour)
	created := time.Now().UTC().Add(-48 * time.Hour)
	cols := []string{"calendar_event_id", "customer_name", "customer_phone", "service", "service_name",
		"specialist", "appointment_date", "appointment_time", "price", "duration_minutes",
		"status", "deposit_required", "deposit_amount", "payment_url", "payment_link_id",
		"event_url", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs("evt_soon").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("evt_soon", "Jane", "+15551234567", "botox", "Botox",
				"Alexis", soon.Format("2006-01-02"), soon.Format("15:04"), 350.0, 60,
				"confirmed", false, 0.0, "", "", "", created, created))

	rec := httptest.NewRecorder()
	h.Cancel(rec, cancelRequest("evt_soon"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error          string  `json:"error"`
		HoursRemaining float64 `json:"hours_remaining"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.HoursRemaining <= 0 || resp.HoursRemaining > 3 {
		t.Fatalf("hours_remaining = %v", resp.HoursRemaining)
	}
}

func cancelRequest(eventID string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/appointments/"+eventID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("eventID", eventID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

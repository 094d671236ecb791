package appointments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
)

// fakeCalendar is an in-memory calendar.Provider for coordinator and
// availability tests.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]calendar.Event
	nextID  int
	failOn  string // operation name that should error: "create", "delete", "list"
	missing map[string]bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]calendar.Event{}, missing: map[string]bool{}}
}

func (f *fakeCalendar) addBusy(start, end time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("busy_%d", f.nextID)
	f.events[id] = calendar.Event{ID: id, Status: calendar.StatusConfirmed, Start: start, End: end}
}

func (f *fakeCalendar) ListEvents(_ context.Context, timeMin, timeMax time.Time, includeCancelled bool) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "list" {
		return nil, fmt.Errorf("fake calendar: list failed")
	}
	var out []calendar.Event
	for _, e := range f.events {
		if !includeCancelled && e.Status == calendar.StatusCancelled {
			continue
		}
		if e.Start.Before(timeMax) && e.End.After(timeMin) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, input calendar.CreateEventInput) (*calendar.CreatedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "create" {
		return nil, fmt.Errorf("fake calendar: create failed")
	}
	f.nextID++
	id := fmt.Sprintf("evt_%d", f.nextID)
	f.events[id] = calendar.Event{
		ID:       id,
		Summary:  input.Summary,
		Status:   calendar.StatusConfirmed,
		URL:      "https://calendar.example/" + id,
		Start:    input.Start,
		End:      input.End,
		Metadata: input.Metadata,
	}
	return &calendar.CreatedEvent{ID: id, URL: "https://calendar.example/" + id}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "delete" {
		return fmt.Errorf("fake calendar: delete failed")
	}
	if _, ok := f.events[eventID]; !ok {
		return calendar.ErrEventNotFound
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, eventID string) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, calendar.ErrEventNotFound
	}
	return &e, nil
}

func (f *fakeCalendar) EventExists(_ context.Context, eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[eventID] {
		return false
	}
	_, ok := f.events[eventID]
	return ok
}

// fakeCatalog serves a small fixed clinic configuration.
type fakeCatalog struct {
	services  []catalog.Service
	staff     []string
	templates map[string]catalog.Template
	hours     map[time.Weekday]catalog.DayHours
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		services: []catalog.Service{
			{Name: "Botox", Price: 350, DurationMinutes: 60},
			{Name: "HydraFacial", Price: 199, DurationMinutes: 30, RequiresDeposit: true, DepositAmount: 50},
		},
		staff: []string{"Alexis", "Brianna", "Casey"},
		templates: map[string]catalog.Template{
			catalog.TemplateReminder24h: {Type: catalog.TemplateReminder24h, Content: "Hi {{.CustomerName}}, reminder for {{.ServiceName}} at {{.Time}}.", Enabled: true, HoursBefore: 24, MinAdvanceHours: 30},
			catalog.TemplateThankYou:    {Type: catalog.TemplateThankYou, Content: "Thanks for visiting, {{.CustomerName}}!", Enabled: true, HoursAfter: 1},
		},
		hours: map[time.Weekday]catalog.DayHours{
			time.Monday:    {OpenMins: 9 * 60, CloseMins: 16 * 60},
			time.Tuesday:   {OpenMins: 9 * 60, CloseMins: 17 * 60},
			time.Wednesday: {OpenMins: 9 * 60, CloseMins: 17 * 60},
			time.Thursday:  {OpenMins: 9 * 60, CloseMins: 17 * 60},
			time.Friday:    {OpenMins: 9 * 60, CloseMins: 17 * 60},
			time.Saturday:  {Closed: true},
			time.Sunday:    {Closed: true},
		},
	}
}

func (f *fakeCatalog) ServiceByName(_ context.Context, name string) (*catalog.Service, error) {
	for i := range f.services {
		if strings.EqualFold(f.services[i].Name, name) {
			s := f.services[i]
			return &s, nil
		}
	}
	return nil, catalog.ErrServiceNotFound
}

func (f *fakeCatalog) Services(_ context.Context) ([]catalog.Service, error) {
	return f.services, nil
}

func (f *fakeCatalog) ActiveStaffNames(_ context.Context) ([]string, error) {
	return f.staff, nil
}

func (f *fakeCatalog) Template(_ context.Context, templateType string) (*catalog.Template, error) {
	t, ok := f.templates[templateType]
	if !ok {
		return nil, catalog.ErrTemplateNotFound
	}
	return &t, nil
}

func (f *fakeCatalog) Hours(_ context.Context, weekday time.Weekday) (catalog.DayHours, error) {
	h, ok := f.hours[weekday]
	if !ok {
		return catalog.DayHours{Closed: true}, nil
	}
	return h, nil
}

package messages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
)

type fakeCatalog struct {
	templates map[string]catalog.Template
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{templates: map[string]catalog.Template{
		TypeReminder: {Type: TypeReminder, Content: "Reminder: {{.ServiceName}} at {{.Time}} on {{.Date}}.", Enabled: true, HoursBefore: 24, MinAdvanceHours: 30},
		TypeThankYou: {Type: TypeThankYou, Content: "Thanks for visiting, {{.CustomerName}}!", Enabled: true, HoursAfter: 1},
	}}
}

func (f *fakeCatalog) ServiceByName(context.Context, string) (*catalog.Service, error) {
	return nil, catalog.ErrServiceNotFound
}
func (f *fakeCatalog) Services(context.Context) ([]catalog.Service, error) { return nil, nil }
func (f *fakeCatalog) ActiveStaffNames(context.Context) ([]string, error)  { return nil, nil }
func (f *fakeCatalog) Template(_ context.Context, templateType string) (*catalog.Template, error) {
	t, ok := f.templates[templateType]
	if !ok {
		return nil, catalog.ErrTemplateNotFound
	}
	return &t, nil
}
func (f *fakeCatalog) Hours(context.Context, time.Weekday) (catalog.DayHours, error) {
	return catalog.DayHours{Closed: true}, nil
}

type fakeExistence struct {
	missing map[string]bool
}

func (f *fakeExistence) ListEvents(context.Context, time.Time, time.Time, bool) ([]calendar.Event, error) {
	return nil, nil
}
func (f *fakeExistence) CreateEvent(context.Context, calendar.CreateEventInput) (*calendar.CreatedEvent, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeExistence) DeleteEvent(context.Context, string) error {
	return calendar.ErrEventNotFound
}
func (f *fakeExistence) GetEvent(context.Context, string) (*calendar.Event, error) {
	return nil, calendar.ErrEventNotFound
}
func (f *fakeExistence) EventExists(_ context.Context, eventID string) bool {
	return !f.missing[eventID]
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	failTo string
}

func (f *fakeSender) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to == f.failTo {
		return fmt.Errorf("fake sender: carrier rejected")
	}
	f.sent = append(f.sent, to+": "+body)
	return nil
}

package appointments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Slot is a bookable start time on a given day.
type Slot struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// End is the half-open upper bound of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// TimeOfDay renders the start as a 24h clock string.
func (s Slot) TimeOfDay() string {
	return s.Start.Format(TimeLayout)
}

// Conversational renders the start the way it reads in a text message.
func (s Slot) Conversational() string {
	return s.Start.Format("3:04 PM")
}

// Calculator computes open slots against live calendar state.
type Calculator struct {
	calendar        calendar.Provider
	catalog         catalog.Provider
	loc             *time.Location
	defaultDuration int
	slotInterval    int
	logger          *logging.Logger
}

// NewCalculator builds an availability calculator. defaultDuration is used
// for services the catalog does not know.
func NewCalculator(cal calendar.Provider, cat catalog.Provider, loc *time.Location, defaultDuration int, logger *logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultDuration <= 0 {
		defaultDuration = 60
	}
	return &Calculator{calendar: cal, catalog: cat, loc: loc, defaultDuration: defaultDuration, logger: logger}
}

// WithSlotInterval fixes the candidate-start grid to the given number of
// minutes instead of stepping by service duration. Zero or negative keeps
// duration-aligned starts.
func (c *Calculator) WithSlotInterval(minutes int) *Calculator {
	c.slotInterval = minutes
	return c
}

// ServiceDuration resolves a service's duration, falling back to the default
// for unknown (custom) services rather than failing.
func (c *Calculator) ServiceDuration(ctx context.Context, serviceName string) int {
	svc, err := c.catalog.ServiceByName(ctx, serviceName)
	if err != nil {
		if !errors.Is(err, catalog.ErrServiceNotFound) {
			c.logger.Warn("availability: service lookup failed", "service", serviceName, "error", err)
		}
		return c.defaultDuration
	}
	return svc.DurationMinutes
}

// AvailableSlots returns every open duration-aligned start on the given date
// for the named service. A closed day yields an empty slice.
func (c *Calculator) AvailableSlots(ctx context.Context, date, serviceName string) ([]Slot, error) {
	duration := c.ServiceDuration(ctx, serviceName)
	return c.slotsForDuration(ctx, date, duration)
}

// SlotAvailable reports whether the exact start time is still open. Used as
// the authoritative re-check immediately before creating the event.
func (c *Calculator) SlotAvailable(ctx context.Context, date, timeOfDay string, durationMinutes int) (bool, error) {
	slots, err := c.slotsForDuration(ctx, date, durationMinutes)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.TimeOfDay() == timeOfDay {
			return true, nil
		}
	}
	return false, nil
}

func (c *Calculator) slotsForDuration(ctx context.Context, date string, durationMinutes int) ([]Slot, error) {
	day, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return nil, fmt.Errorf("appointments: parse date %q: %w", date, err)
	}
	if durationMinutes <= 0 {
		durationMinutes = c.defaultDuration
	}

	hours, err := c.catalog.Hours(ctx, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("appointments: business hours: %w", err)
	}
	if hours.Closed {
		return nil, nil
	}

	dayStart := day
	dayEnd := day.Add(24 * time.Hour)
	events, err := c.calendar.ListEvents(ctx, dayStart, dayEnd, false)
	if err != nil {
		return nil, fmt.Errorf("appointments: list events: %w", err)
	}

	type interval struct{ start, end time.Time }
	var busy []interval
	for _, e := range events {
		// All-day events carry no clock time and do not block slots.
		if e.Start.IsZero() || e.End.IsZero() {
			continue
		}
		busy = append(busy, interval{e.Start.In(c.loc), e.End.In(c.loc)})
	}

	open := day.Add(time.Duration(hours.OpenMins) * time.Minute)
	closeAt := day.Add(time.Duration(hours.CloseMins) * time.Minute)
	length := time.Duration(durationMinutes) * time.Minute
	step := length
	if c.slotInterval > 0 {
		step = time.Duration(c.slotInterval) * time.Minute
	}

	var slots []Slot
	for start := open; !start.Add(length).After(closeAt); start = start.Add(step) {
		end := start.Add(length)
		free := true
		for _, b := range busy {
			if start.Before(b.end) && end.After(b.start) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Start: start, DurationMinutes: durationMinutes})
		}
	}
	return slots, nil
}

// ClosestSlots picks the nearest open slot before and after the preferred
// clock time. Either return may be nil.
func ClosestSlots(slots []Slot, preferred string) (before, after *Slot) {
	want, err := minutesOfDay(preferred)
	if err != nil {
		return nil, nil
	}
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i := range sorted {
		m := sorted[i].Start.Hour()*60 + sorted[i].Start.Minute()
		switch {
		case m < want:
			before = &sorted[i]
		case m > want && after == nil:
			after = &sorted[i]
		}
	}
	return before, after
}

// SpreadSlots picks up to n representative slots scattered across morning,
// midday and afternoon, and reports how many open slots were left unshown.
func SpreadSlots(slots []Slot, n int) (picked []Slot, remaining int) {
	if n <= 0 || len(slots) == 0 {
		return nil, len(slots)
	}
	if n > len(slots) {
		n = len(slots)
	}

	var morning, midday, afternoon []Slot
	for _, s := range slots {
		switch h := s.Start.Hour(); {
		case h < 12:
			morning = append(morning, s)
		case h < 15:
			midday = append(midday, s)
		default:
			afternoon = append(afternoon, s)
		}
	}

	seen := make(map[string]bool)
	add := func(s Slot) {
		key := s.TimeOfDay()
		if len(picked) < n && !seen[key] {
			seen[key] = true
			picked = append(picked, s)
		}
	}

	if len(morning) > 0 {
		add(morning[0])
	}
	if len(afternoon) > 0 {
		add(afternoon[len(afternoon)-1])
	}
	if len(midday) > 0 {
		add(midday[len(midday)/2])
	}
	if len(morning) > 1 {
		add(morning[len(morning)-1])
	}
	if len(afternoon) > 1 {
		add(afternoon[0])
	}
	for _, section := range [][]Slot{morning, midday, afternoon} {
		for _, s := range section {
			add(s)
		}
	}
	return picked, len(slots) - len(picked)
}

var clockFormats = []string{"15:04", "3:04pm", "3:04 pm", "3pm", "3 pm", "15", "3:04"}

var bareHour = regexp.MustCompile(`^\d{1,2}$`)

// ParseClockTime normalizes a loosely formatted user time ("2pm", "14:00",
// "2:30 PM") into the canonical HH:MM form.
func ParseClockTime(input string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	for _, layout := range clockFormats {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	compact := strings.ReplaceAll(trimmed, " ", "")
	for _, layout := range []string{"3:04pm", "3pm", "15:04"} {
		if t, err := time.Parse(layout, compact); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	if bareHour.MatchString(trimmed) {
		if t, err := time.Parse("15", trimmed); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("appointments: unrecognized time %q", input)
}

func minutesOfDay(clock string) (int, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// GoogleProvider implements Provider on top of the Google Calendar v3 API.
type GoogleProvider struct {
	svc        *gcal.Service
	calendarID string
	location   *time.Location
	logger     *logging.Logger
}

// NewGoogleProvider builds a provider from a service-account credentials file.
func NewGoogleProvider(ctx context.Context, calendarID, credentialsFile string, location *time.Location, logger *logging.Logger) (*GoogleProvider, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar: calendar id required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: init service: %w", err)
	}
	return &GoogleProvider{svc: svc, calendarID: calendarID, location: location, logger: logger}, nil
}

// ListEvents pages through the calendar between timeMin and timeMax.
func (p *GoogleProvider) ListEvents(ctx context.Context, timeMin, timeMax time.Time, includeCancelled bool) ([]Event, error) {
	var events []Event
	pageToken := ""
	for {
		call := p.svc.Events.List(p.calendarID).
			Context(ctx).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(includeCancelled).
			OrderBy("startTime")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("calendar: list events: %w", err)
		}
		for _, item := range res.Items {
			events = append(events, p.fromGoogle(item))
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return events, nil
}

// CreateEvent inserts the event with structured metadata plus a readable
// description.
func (p *GoogleProvider) CreateEvent(ctx context.Context, input CreateEventInput) (*CreatedEvent, error) {
	event := &gcal.Event{
		Summary:     input.Summary,
		Description: BuildDescription(input.Metadata),
		Start: &gcal.EventDateTime{
			DateTime: input.Start.In(p.location).Format(time.RFC3339),
			TimeZone: p.location.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: input.End.In(p.location).Format(time.RFC3339),
			TimeZone: p.location.String(),
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: metadataToProperties(input.Metadata),
		},
	}
	created, err := p.svc.Events.Insert(p.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: create event: %w", err)
	}
	p.logger.Info("calendar event created", "event_id", created.Id)
	return &CreatedEvent{ID: created.Id, URL: created.HtmlLink}, nil
}

// DeleteEvent removes the event from the calendar.
func (p *GoogleProvider) DeleteEvent(ctx context.Context, eventID string) error {
	err := p.svc.Events.Delete(p.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	p.logger.Info("calendar event deleted", "event_id", eventID)
	return nil
}

// GetEvent fetches a single event by ID.
func (p *GoogleProvider) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	item, err := p.svc.Events.Get(p.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("calendar: get event %s: %w", eventID, err)
	}
	event := p.fromGoogle(item)
	return &event, nil
}

// EventExists reports whether the event is still live. API errors other than
// 404 report true so a flaky read never cancels a valid reminder.
func (p *GoogleProvider) EventExists(ctx context.Context, eventID string) bool {
	item, err := p.svc.Events.Get(p.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false
		}
		p.logger.Warn("calendar existence check failed, assuming live", "event_id", eventID, "error", err)
		return true
	}
	return item.Status != StatusCancelled
}

func (p *GoogleProvider) fromGoogle(item *gcal.Event) Event {
	event := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
		URL:         item.HtmlLink,
	}
	if event.Status == "" {
		event.Status = StatusConfirmed
	}
	if item.Start != nil && item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			event.Start = t.In(p.location)
		}
	}
	if item.End != nil && item.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			event.End = t.In(p.location)
		}
	}
	var props map[string]string
	if item.ExtendedProperties != nil {
		props = item.ExtendedProperties.Private
	}
	event.Metadata = ParseEventMetadata(props, item.Description)
	return event
}

func isNotFound(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

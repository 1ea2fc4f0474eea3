package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// keyProperty is the private extended property the idempotency key is stored
// under. Google Calendar lets us query it back exactly, which makes the
// existence check provider-native instead of a local bookkeeping table.
const keyProperty = "reservationKey"

// GoogleProvider implements Provider on the Google Calendar API.
type GoogleProvider struct {
	svc        *gcal.Service
	calendarID string
	tz         *time.Location
}

// NewGoogleProvider builds a calendar client from the given token source.
func NewGoogleProvider(ctx context.Context, ts oauth2.TokenSource, calendarID string, tz *time.Location) (*GoogleProvider, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if tz == nil {
		tz = time.UTC
	}
	return &GoogleProvider{svc: svc, calendarID: calendarID, tz: tz}, nil
}

func (p *GoogleProvider) ListDay(ctx context.Context, day time.Time) ([]Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, p.tz)
	dayEnd := dayStart.Add(24 * time.Hour)

	events, err := p.svc.Events.List(p.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	return p.toEvents(events.Items), nil
}

func (p *GoogleProvider) FindByKey(ctx context.Context, key string) (*Event, error) {
	events, err := p.svc.Events.List(p.calendarID).
		PrivateExtendedProperty(keyProperty + "=" + key).
		ShowDeleted(false).
		SingleEvents(true).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	converted := p.toEvents(events.Items)
	if len(converted) == 0 {
		return nil, nil
	}
	return &converted[0], nil
}

func (p *GoogleProvider) CreateEvent(ctx context.Context, req EventRequest) (*Event, error) {
	attendees := make([]*gcal.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}

	ev := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.In(p.tz).Format(time.RFC3339),
			TimeZone: p.tz.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.In(p.tz).Format(time.RFC3339),
			TimeZone: p.tz.String(),
		},
		Attendees: attendees,
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{keyProperty: req.Key},
		},
	}

	created, err := p.svc.Events.Insert(p.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	out := p.toEvent(created)
	out.Key = req.Key
	return &out, nil
}

func (p *GoogleProvider) toEvents(items []*gcal.Event) []Event {
	out := make([]Event, 0, len(items))
	for _, item := range items {
		// Skip all-day events without a concrete start instant.
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		out = append(out, p.toEvent(item))
	}
	return out
}

func (p *GoogleProvider) toEvent(item *gcal.Event) Event {
	var start, end time.Time
	if item.Start != nil {
		start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
	}
	if item.End != nil {
		end, _ = time.Parse(time.RFC3339, item.End.DateTime)
	}

	var attendees []string
	for _, a := range item.Attendees {
		attendees = append(attendees, a.Email)
	}

	var key string
	if item.ExtendedProperties != nil {
		key = item.ExtendedProperties.Private[keyProperty]
	}

	return Event{
		ID:          item.Id,
		Link:        item.HtmlLink,
		Key:         key,
		Start:       start,
		End:         end,
		Summary:     item.Summary,
		Description: item.Description,
		Attendees:   attendees,
	}
}

// classify maps provider errors onto the two failure classes the
// orchestrator distinguishes: retryable infrastructure failures and fatal
// rejections.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code >= 500 {
			return fmt.Errorf("%w: %s", ErrUnavailable, gerr.Message)
		}
		return fmt.Errorf("%w: %d %s", ErrRejected, gerr.Code, gerr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Unknown transport-level failure: treat as retryable rather than
	// surfacing a raw provider error to the caller.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Package calendar abstracts the external calendar provider that is
// authoritative for whether an event exists. The pipeline only creates and
// queries events, never mutates existing ones.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks transient provider failures (5xx, timeouts,
	// transport errors). Safe to retry the whole operation.
	ErrUnavailable = errors.New("calendar provider unavailable")
	// ErrRejected marks non-retryable provider failures (4xx).
	ErrRejected = errors.New("calendar provider rejected request")
)

// Event is the provider-agnostic view of an external calendar event.
type Event struct {
	ID          string
	Link        string
	Key         string // idempotency key attached at creation time
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
	Attendees   []string
}

// EventRequest describes an event to be created.
type EventRequest struct {
	Key         string
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
	Attendees   []string
}

// Provider is the external calendar contract.
type Provider interface {
	// ListDay returns the events overlapping the given calendar day.
	ListDay(ctx context.Context, day time.Time) ([]Event, error)
	// FindByKey looks up an event by idempotency key. Returns (nil, nil)
	// when no such event exists.
	FindByKey(ctx context.Context, key string) (*Event, error)
	// CreateEvent submits the event with the idempotency key attached as a
	// provider-native field and returns the created event.
	CreateEvent(ctx context.Context, req EventRequest) (*Event, error)
}

// KeyFor derives the deterministic idempotency key for a window. The same
// window always yields the same key, so re-submission never creates a
// duplicate event regardless of which process created the first one.
func KeyFor(date, start, end string) string {
	strip := func(s string, cut string) string {
		return strings.ReplaceAll(s, cut, "")
	}
	return fmt.Sprintf("slot-%s-%s-%s", strip(date, "-"), strip(start, ":"), strip(end, ":"))
}

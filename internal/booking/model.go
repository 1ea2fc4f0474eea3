package booking

import (
	"net/http"
	"sort"
	"time"

	"github.com/clubworks/coaching-booking-backend/internal/pkg/apperror"
	"github.com/clubworks/coaching-booking-backend/internal/slot"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "NOT_FOUND", "booking not found")
	ErrInvalidRequest   = apperror.New(http.StatusBadRequest, "VALIDATION", "invalid booking request")
	ErrDatePast         = apperror.New(http.StatusBadRequest, "DATE_PAST", "cannot book a slot in the past")
	ErrSlotNotOffered   = apperror.New(http.StatusBadRequest, "SLOT_NOT_OFFERED", "requested slot is not on the schedule")
	ErrSlotHeld         = apperror.New(http.StatusConflict, "SLOT_HELD", "slot currently held, retry shortly")
	ErrDoubleBooked     = apperror.New(http.StatusConflict, "DOUBLE_BOOKED", "slot already booked, choose another")
	ErrExternalFailure  = apperror.New(http.StatusInternalServerError, "EXTERNAL_FAILURE", "calendar provider unavailable, try again")
	ErrExternalRejected = apperror.New(http.StatusInternalServerError, "EXTERNAL_REJECTED", "calendar provider rejected the booking")
	ErrPersistFailure   = apperror.New(http.StatusInternalServerError, "PERSIST_FAILURE", "booking confirmed in calendar but could not be saved")
)

type Status string

// StatusConfirmed is the only status this pipeline writes. A confirmed
// booking is terminal; it never transitions back to pending.
const StatusConfirmed Status = "confirmed"

// SelectedSlot is one slot picked from the availability listing.
type SelectedSlot struct {
	Start           string `json:"start"` // "15:04"
	DurationMinutes int    `json:"durationMinutes"`
}

// Request is a booking submission. It exists only for the duration of one
// commit attempt and is never stored as-is.
type Request struct {
	Name     string
	Email    string
	Phone    string
	Location string
	Date     string // "2006-01-02"
	Slots    []SelectedSlot
	Notes    string
}

// Confirmed is the durable record of a committed booking. It is written only
// after the external calendar event exists.
type Confirmed struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Location       string
	Date           string
	StartTime      string
	EndTime        string
	Slots          []SelectedSlot
	TotalMinutes   int
	TotalCostCents int
	EventID        string
	EventLink      string
	Status         Status
	Notes          string
	CreatedAt      time.Time
}

// window is the collapsed (date, start, end) triple a request commits to,
// plus the concrete instants needed for the calendar event.
type window struct {
	start        string
	end          string
	startAt      time.Time
	endAt        time.Time
	totalMinutes int
}

// window validates the request and collapses its slots into a single
// contiguous window. Selected slots must all appear on the weekday's
// schedule and must be adjacent, so the lock and the idempotency key cover
// exactly one interval.
func (r Request) window(tz *time.Location, now time.Time) (*window, error) {
	day, err := time.ParseInLocation("2006-01-02", r.Date, tz)
	if err != nil {
		return nil, ErrInvalidRequest.WithErr(err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
	if day.Before(today) {
		return nil, ErrDatePast
	}
	if len(r.Slots) == 0 {
		return nil, ErrInvalidRequest
	}

	offered := make(map[string]int)
	for _, tpl := range slot.TemplatesFor(day.Weekday()) {
		offered[tpl.Start] = tpl.DurationMinutes
	}

	slots := make([]SelectedSlot, len(r.Slots))
	copy(slots, r.Slots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })

	var startAt, endAt time.Time
	total := 0
	for i, sel := range slots {
		duration, ok := offered[sel.Start]
		if !ok || duration != sel.DurationMinutes {
			return nil, ErrSlotNotOffered
		}

		parsed, err := time.ParseInLocation("15:04", sel.Start, tz)
		if err != nil {
			return nil, ErrInvalidRequest.WithErr(err)
		}
		slotStart := day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
		slotEnd := slotStart.Add(time.Duration(sel.DurationMinutes) * time.Minute)

		if i == 0 {
			startAt = slotStart
		} else if !slotStart.Equal(endAt) {
			// Multi-slot bookings must be contiguous so they form one window.
			return nil, ErrInvalidRequest
		}
		endAt = slotEnd
		total += sel.DurationMinutes
	}

	return &window{
		start:        startAt.Format("15:04"),
		end:          endAt.Format("15:04"),
		startAt:      startAt,
		endAt:        endAt,
		totalMinutes: total,
	}, nil
}

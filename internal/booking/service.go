package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubworks/coaching-booking-backend/internal/calendar"
	"github.com/clubworks/coaching-booking-backend/internal/reslock"
	"github.com/clubworks/coaching-booking-backend/internal/slot"
)

// DaySlots is the availability listing for one date. Degraded is set when
// the calendar provider was unreachable and the listing fell back to the
// static schedule with every slot marked available.
type DaySlots struct {
	Date     string
	Degraded bool
	Slots    []slot.Instance
}

type Service interface {
	GetSlots(ctx context.Context, date string) (*DaySlots, error)
	Book(ctx context.Context, req Request) (*Confirmed, error)
	GetByID(ctx context.Context, id string) (*Confirmed, error)
	ListByDate(ctx context.Context, date string, page, pageSize int) ([]*Confirmed, int, error)
}

// ServiceConfig carries the injected collaborators and commit settings.
type ServiceConfig struct {
	Repo            Repository
	Locks           reslock.Manager
	Provider        calendar.Provider
	Timezone        *time.Location
	LockTTL         time.Duration
	HourlyRateCents int
	Attendees       []string         // invited to every created event (e.g. the coach)
	NewHolderID     func() string    // defaults to uuid.NewString
	Now             func() time.Time // injectable clock
}

type service struct {
	repo            Repository
	locks           reslock.Manager
	provider        calendar.Provider
	tz              *time.Location
	lockTTL         time.Duration
	hourlyRateCents int
	attendees       []string
	newHolderID     func() string
	now             func() time.Time
}

func NewService(cfg ServiceConfig) Service {
	s := &service{
		repo:            cfg.Repo,
		locks:           cfg.Locks,
		provider:        cfg.Provider,
		tz:              cfg.Timezone,
		lockTTL:         cfg.LockTTL,
		hourlyRateCents: cfg.HourlyRateCents,
		attendees:       cfg.Attendees,
		newHolderID:     cfg.NewHolderID,
		now:             cfg.Now,
	}
	if s.tz == nil {
		s.tz = time.UTC
	}
	if s.lockTTL <= 0 {
		s.lockTTL = reslock.DefaultTTL
	}
	if s.newHolderID == nil {
		s.newHolderID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetSlots lists the schedule for a date with advisory availability flags.
// Provider failures degrade to the static schedule instead of erroring: the
// commit path re-checks availability under the lock anyway.
func (s *service) GetSlots(ctx context.Context, date string) (*DaySlots, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.tz)
	if err != nil {
		return nil, ErrInvalidRequest.WithErr(err)
	}

	instances := slot.InstancesFor(day, s.tz)
	out := &DaySlots{Date: date, Slots: instances}
	if len(instances) == 0 {
		return out, nil
	}

	events, err := s.provider.ListDay(ctx, day)
	if err != nil {
		log.Printf("slot listing degraded, provider unreachable for %s: %v", date, err)
		out.Degraded = true
		return out, nil
	}

	busy := make([]slot.Interval, 0, len(events))
	for _, ev := range events {
		busy = append(busy, slot.Interval{Start: ev.Start, End: ev.End})
	}
	out.Slots = slot.Scan(instances, busy)
	return out, nil
}

// Book drives one commit attempt through the full pipeline:
// lock -> idempotency check -> event creation -> persist, releasing the lock
// on every exit path. Side effects are strictly ordered: no event is created
// before the lock is held, and no local record is written before the event
// exists.
func (s *service) Book(ctx context.Context, req Request) (*Confirmed, error) {
	win, err := req.window(s.tz, s.now().In(s.tz))
	if err != nil {
		return nil, err
	}

	key := reslock.Key{Date: req.Date, Start: win.start, End: win.end}

	acquired, err := s.locks.Acquire(ctx, key, s.newHolderID(), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock acquisition for %s failed: %w", key, err)
	}
	if !acquired {
		return nil, ErrSlotHeld
	}
	// The release must run on every exit path, including panics, and must
	// not be skipped because the request context already expired.
	defer func() {
		if relErr := s.locks.Release(context.WithoutCancel(ctx), key); relErr != nil {
			log.Printf("failed to release lock %s: %v", key, relErr)
		}
	}()

	// The lock holds off concurrent committers; the idempotency key catches
	// the window already committed by a prior attempt that crashed before
	// unlocking, or by a holder whose lock expired mid-flight.
	idemKey := calendar.KeyFor(req.Date, win.start, win.end)
	existing, err := s.provider.FindByKey(ctx, idemKey)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	if existing != nil {
		return nil, ErrDoubleBooked
	}

	event, err := s.provider.CreateEvent(ctx, calendar.EventRequest{
		Key:         idemKey,
		Start:       win.startAt,
		End:         win.endAt,
		Summary:     fmt.Sprintf("Coaching session: %s", req.Name),
		Description: describe(req, win),
		Attendees:   s.eventAttendees(req),
	})
	if err != nil {
		return nil, mapProviderErr(err)
	}

	confirmed := &Confirmed{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Location:       req.Location,
		Date:           req.Date,
		StartTime:      win.start,
		EndTime:        win.end,
		Slots:          req.Slots,
		TotalMinutes:   win.totalMinutes,
		TotalCostCents: win.totalMinutes * s.hourlyRateCents / 60,
		EventID:        event.ID,
		EventLink:      event.Link,
		Status:         StatusConfirmed,
		Notes:          req.Notes,
	}

	if err := s.repo.Create(ctx, confirmed); err != nil {
		if errors.Is(err, ErrDoubleBooked) {
			log.Printf("booking row already exists for %s, calendar event %s left in place", key, event.ID)
			return nil, err
		}
		// The calendar event now exists with no local record. There is no
		// compensating delete; the orphan is reconciled out-of-band, so it
		// must be loud and carry the event identifiers.
		log.Printf("ALERT: persist failed after event creation: window=%s event_id=%s link=%s err=%v",
			key, event.ID, event.Link, err)
		return nil, ErrPersistFailure.WithErr(err)
	}

	return confirmed, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Confirmed, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByDate(ctx context.Context, date string, page, pageSize int) ([]*Confirmed, int, error) {
	return s.repo.ListByDate(ctx, date, page, pageSize)
}

func (s *service) eventAttendees(req Request) []string {
	attendees := make([]string, 0, len(s.attendees)+1)
	attendees = append(attendees, s.attendees...)
	if req.Email != "" {
		attendees = append(attendees, req.Email)
	}
	return attendees
}

// mapProviderErr converts calendar-level failures into the caller-facing
// taxonomy. Raw provider errors never cross the orchestrator boundary.
func mapProviderErr(err error) error {
	if errors.Is(err, calendar.ErrRejected) {
		return ErrExternalRejected.WithErr(err)
	}
	return ErrExternalFailure.WithErr(err)
}

func describe(req Request, win *window) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Coaching session for %s (%s", req.Name, req.Email)
	if req.Phone != "" {
		fmt.Fprintf(&b, ", %s", req.Phone)
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Location: %s\n", req.Location)
	fmt.Fprintf(&b, "Duration: %d minutes\n", win.totalMinutes)
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Notes)
	}
	return b.String()
}

package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubworks/coaching-booking-backend/internal/booking"
	"github.com/clubworks/coaching-booking-backend/internal/calendar"
	"github.com/clubworks/coaching-booking-backend/internal/reslock"
)

// fakeProvider is a thread-safe in-memory calendar.Provider. Created events
// are indexed by idempotency key, which is exactly what FindByKey queries.
type fakeProvider struct {
	mu        sync.Mutex
	events    map[string]calendar.Event
	busy      []calendar.Event
	listErr   error
	findErr   error
	createErr error
	createFn  func() // runs inside CreateEvent, before recording
	created   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(map[string]calendar.Event)}
}

func (p *fakeProvider) ListDay(_ context.Context, _ time.Time) ([]calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]calendar.Event(nil), p.busy...), nil
}

func (p *fakeProvider) FindByKey(_ context.Context, key string) (*calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findErr != nil {
		return nil, p.findErr
	}
	if ev, ok := p.events[key]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (p *fakeProvider) CreateEvent(_ context.Context, req calendar.EventRequest) (*calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createFn != nil {
		p.createFn()
	}
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created++
	ev := calendar.Event{
		ID:          fmt.Sprintf("event-%d", p.created),
		Link:        fmt.Sprintf("https://calendar.example/event-%d", p.created),
		Key:         req.Key,
		Start:       req.Start,
		End:         req.End,
		Summary:     req.Summary,
		Description: req.Description,
		Attendees:   req.Attendees,
	}
	p.events[req.Key] = ev
	return &ev, nil
}

type fakeRepo struct {
	mu        sync.Mutex
	createErr error
	created   []*booking.Confirmed
}

func (r *fakeRepo) Create(_ context.Context, b *booking.Confirmed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	b.ID = fmt.Sprintf("booking-%d", len(r.created)+1)
	b.CreatedAt = time.Now()
	r.created = append(r.created, b)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*booking.Confirmed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.created {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (r *fakeRepo) ListByDate(_ context.Context, date string, _, _ int) ([]*booking.Confirmed, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Confirmed
	for _, b := range r.created {
		if date == "" || b.Date == date {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

type pipeline struct {
	service  booking.Service
	repo     *fakeRepo
	provider *fakeProvider
	locks    *reslock.MemoryManager
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	repo := &fakeRepo{}
	provider := newFakeProvider()
	locks := reslock.NewMemoryManager()
	svc := booking.NewService(booking.ServiceConfig{
		Repo:            repo,
		Locks:           locks,
		Provider:        provider,
		Timezone:        time.UTC,
		HourlyRateCents: 6000,
		Attendees:       []string{"coach@club.example"},
		Now:             func() time.Time { return time.Date(2029, 12, 1, 9, 0, 0, 0, time.UTC) },
	})
	return &pipeline{service: svc, repo: repo, provider: provider, locks: locks}
}

// fridayRequest books the 13:00 slot on 2030-01-04 (a Friday).
func fridayRequest() booking.Request {
	return booking.Request{
		Name:     "Jamie Doe",
		Email:    "jamie@club.example",
		Phone:    "555-0100",
		Location: "Main Club",
		Date:     "2030-01-04",
		Slots:    []booking.SelectedSlot{{Start: "13:00", DurationMinutes: 60}},
	}
}

var fridayKey = reslock.Key{Date: "2030-01-04", Start: "13:00", End: "14:00"}

func TestBookSuccess(t *testing.T) {
	p := newPipeline(t)

	confirmed, err := p.service.Book(context.Background(), fridayRequest())
	require.NoError(t, err)

	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)
	assert.Equal(t, "13:00", confirmed.StartTime)
	assert.Equal(t, "14:00", confirmed.EndTime)
	assert.Equal(t, 60, confirmed.TotalMinutes)
	assert.Equal(t, 6000, confirmed.TotalCostCents)
	assert.Equal(t, "event-1", confirmed.EventID)
	assert.NotEmpty(t, confirmed.EventLink)
	assert.NotEmpty(t, confirmed.ID)

	// Event carries the deterministic key and both attendees.
	ev := p.provider.events["slot-20300104-1300-1400"]
	require.NotZero(t, ev.ID)
	assert.ElementsMatch(t, []string{"coach@club.example", "jamie@club.example"}, ev.Attendees)

	// Lock is released after a successful commit.
	assert.False(t, p.locks.Held(fridayKey))
}

func TestBookContiguousSlotsCollapseToOneWindow(t *testing.T) {
	p := newPipeline(t)

	req := fridayRequest()
	req.Slots = []booking.SelectedSlot{
		{Start: "14:00", DurationMinutes: 60},
		{Start: "13:00", DurationMinutes: 60}, // order must not matter
	}

	confirmed, err := p.service.Book(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "13:00", confirmed.StartTime)
	assert.Equal(t, "15:00", confirmed.EndTime)
	assert.Equal(t, 120, confirmed.TotalMinutes)
	assert.Equal(t, 12000, confirmed.TotalCostCents)
	assert.Equal(t, 1, p.provider.created, "one window means one event")
}

func TestBookValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*booking.Request)
		wantErr error
	}{
		{
			name:    "malformed date",
			mutate:  func(r *booking.Request) { r.Date = "04-01-2030" },
			wantErr: booking.ErrInvalidRequest,
		},
		{
			name:    "date in the past",
			mutate:  func(r *booking.Request) { r.Date = "2020-01-03" },
			wantErr: booking.ErrDatePast,
		},
		{
			name:    "no slots selected",
			mutate:  func(r *booking.Request) { r.Slots = nil },
			wantErr: booking.ErrInvalidRequest,
		},
		{
			name: "slot not on the schedule",
			mutate: func(r *booking.Request) {
				r.Slots = []booking.SelectedSlot{{Start: "09:00", DurationMinutes: 60}}
			},
			wantErr: booking.ErrSlotNotOffered,
		},
		{
			name: "weekend has no schedule",
			mutate: func(r *booking.Request) {
				r.Date = "2030-01-05" // Saturday
			},
			wantErr: booking.ErrSlotNotOffered,
		},
		{
			name: "duration does not match the schedule",
			mutate: func(r *booking.Request) {
				r.Slots = []booking.SelectedSlot{{Start: "13:00", DurationMinutes: 30}}
			},
			wantErr: booking.ErrSlotNotOffered,
		},
		{
			name: "non-contiguous slots",
			mutate: func(r *booking.Request) {
				r.Slots = []booking.SelectedSlot{
					{Start: "11:00", DurationMinutes: 60},
					{Start: "13:00", DurationMinutes: 60},
				}
			},
			wantErr: booking.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			req := fridayRequest()
			tt.mutate(&req)

			_, err := p.service.Book(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, p.provider.created, "validation failures must precede the lock and the provider")
		})
	}
}

func TestBookLockDenied(t *testing.T) {
	p := newPipeline(t)

	// Another committer holds the window.
	ok, err := p.locks.Acquire(context.Background(), fridayKey, "other-holder", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = p.service.Book(context.Background(), fridayRequest())
	assert.ErrorIs(t, err, booking.ErrSlotHeld)
	assert.Zero(t, p.provider.created, "denied attempts must not reach the provider")

	// The denied attempt must not have released the other holder's lock.
	assert.True(t, p.locks.Held(fridayKey))
}

func TestBookDoubleBooked(t *testing.T) {
	p := newPipeline(t)

	// A prior attempt (possibly crashed before unlock) already created the
	// event for this window.
	_, err := p.provider.CreateEvent(context.Background(), calendar.EventRequest{
		Key: "slot-20300104-1300-1400",
	})
	require.NoError(t, err)

	_, err = p.service.Book(context.Background(), fridayRequest())
	assert.ErrorIs(t, err, booking.ErrDoubleBooked)
	assert.Equal(t, 1, p.provider.created, "no second event for the same window")
	assert.False(t, p.locks.Held(fridayKey), "lock must still be released")
}

func TestBookProviderFailures(t *testing.T) {
	t.Run("existence check unavailable", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.findErr = fmt.Errorf("%w: 503", calendar.ErrUnavailable)

		_, err := p.service.Book(context.Background(), fridayRequest())
		assert.ErrorIs(t, err, booking.ErrExternalFailure)
		assert.Zero(t, p.provider.created)
		assert.Empty(t, p.repo.created, "no partial state may survive a provider failure")
		assert.False(t, p.locks.Held(fridayKey))
	})

	t.Run("creation unavailable", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.createErr = fmt.Errorf("%w: timeout", calendar.ErrUnavailable)

		_, err := p.service.Book(context.Background(), fridayRequest())
		assert.ErrorIs(t, err, booking.ErrExternalFailure)
		assert.Empty(t, p.repo.created)
		assert.False(t, p.locks.Held(fridayKey))
	})

	t.Run("creation rejected", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.createErr = fmt.Errorf("%w: 400", calendar.ErrRejected)

		_, err := p.service.Book(context.Background(), fridayRequest())
		assert.ErrorIs(t, err, booking.ErrExternalRejected)
		assert.False(t, p.locks.Held(fridayKey))
	})
}

func TestBookReleasesLockOnPanic(t *testing.T) {
	p := newPipeline(t)
	p.provider.createFn = func() { panic("provider blew up") }

	require.Panics(t, func() {
		_, _ = p.service.Book(context.Background(), fridayRequest())
	})

	assert.False(t, p.locks.Held(fridayKey), "release must run even on panic")
}

func TestBookPersistFailureLeavesOrphanAndStaysIdempotent(t *testing.T) {
	p := newPipeline(t)
	p.repo.createErr = errors.New("connection refused")

	// First attempt: event created, persistence fails.
	_, err := p.service.Book(context.Background(), fridayRequest())
	assert.ErrorIs(t, err, booking.ErrPersistFailure)
	assert.Equal(t, 1, p.provider.created, "the orphaned event stays in the calendar")
	assert.False(t, p.locks.Held(fridayKey))

	// Retry with a healthy store: the idempotency key blocks a second event.
	p.repo.createErr = nil
	_, err = p.service.Book(context.Background(), fridayRequest())
	assert.ErrorIs(t, err, booking.ErrDoubleBooked)
	assert.Equal(t, 1, p.provider.created, "never a second external event for the same window")
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	p := newPipeline(t)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.service.Book(context.Background(), fridayRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, denials int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, booking.ErrSlotHeld), errors.Is(err, booking.ErrDoubleBooked):
			denials++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one concurrent attempt may win")
	assert.Equal(t, attempts-1, denials)
	assert.Equal(t, 1, p.provider.created)
	assert.Len(t, p.repo.created, 1)
	assert.False(t, p.locks.Held(fridayKey))
}

func TestGetSlots(t *testing.T) {
	ctx := context.Background()
	day := func(h int) time.Time { return time.Date(2030, 1, 4, h, 0, 0, 0, time.UTC) }

	t.Run("friday with no events has five open slots", func(t *testing.T) {
		p := newPipeline(t)

		out, err := p.service.GetSlots(ctx, "2030-01-04")
		require.NoError(t, err)
		require.Len(t, out.Slots, 5)
		assert.False(t, out.Degraded)
		for _, s := range out.Slots {
			assert.True(t, s.Available)
		}
	})

	t.Run("busy event marks the overlapping slot", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.busy = []calendar.Event{{Start: day(13), End: day(14)}}

		out, err := p.service.GetSlots(ctx, "2030-01-04")
		require.NoError(t, err)
		require.Len(t, out.Slots, 5)
		for _, s := range out.Slots {
			if s.Start.Hour() == 13 {
				assert.False(t, s.Available)
			} else {
				assert.True(t, s.Available)
			}
		}
	})

	t.Run("provider failure degrades to the static schedule", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.listErr = fmt.Errorf("%w: 503", calendar.ErrUnavailable)

		out, err := p.service.GetSlots(ctx, "2030-01-04")
		require.NoError(t, err, "degraded mode is not a hard failure")
		assert.True(t, out.Degraded)
		require.Len(t, out.Slots, 5)
		for _, s := range out.Slots {
			assert.True(t, s.Available)
		}
	})

	t.Run("weekend is empty without calling the provider", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.listErr = errors.New("must not be called")

		out, err := p.service.GetSlots(ctx, "2030-01-05")
		require.NoError(t, err)
		assert.Empty(t, out.Slots)
		assert.False(t, out.Degraded)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		p := newPipeline(t)
		_, err := p.service.GetSlots(ctx, "not-a-date")
		assert.ErrorIs(t, err, booking.ErrInvalidRequest)
	})
}

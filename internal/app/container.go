package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubworks/coaching-booking-backend/internal/api"
	"github.com/clubworks/coaching-booking-backend/internal/booking"
	"github.com/clubworks/coaching-booking-backend/internal/calendar"
	"github.com/clubworks/coaching-booking-backend/internal/reslock"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	DBPool          *pgxpool.Pool
	Provider        calendar.Provider
	Locks           reslock.Manager // defaults to the pgx lock manager on DBPool
	Timezone        *time.Location
	LockTTL         time.Duration
	HourlyRateCents int
	Attendees       []string
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	locks := cfg.Locks
	if locks == nil {
		locks = reslock.NewPgxManager(cfg.DBPool)
	}

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(booking.ServiceConfig{
		Repo:            bookingRepo,
		Locks:           locks,
		Provider:        cfg.Provider,
		Timezone:        cfg.Timezone,
		LockTTL:         cfg.LockTTL,
		HourlyRateCents: cfg.HourlyRateCents,
		Attendees:       cfg.Attendees,
	})

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		BookingService: bookingService,
	})

	return &Container{
		Router:         router,
		BookingService: bookingService,
	}
}

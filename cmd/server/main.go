package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/clubworks/coaching-booking-backend/internal/app"
	"github.com/clubworks/coaching-booking-backend/internal/auth"
	"github.com/clubworks/coaching-booking-backend/internal/calendar"
	"github.com/clubworks/coaching-booking-backend/internal/config"
	"github.com/clubworks/coaching-booking-backend/internal/db"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	// Calendar provider authenticated through the service account signer
	keyPEM, err := os.ReadFile(cfg.SAKeyFile)
	if err != nil {
		log.Fatalf("failed to read service account key: %v", err)
	}
	signer, err := auth.NewRSASignerFromPEM(keyPEM)
	if err != nil {
		log.Fatalf("failed to parse service account key: %v", err)
	}
	tokenSource := &auth.ServiceAccountTokenSource{
		Signer: signer,
		Email:  cfg.SAEmail,
		Scopes: []string{gcal.CalendarScope},
	}
	provider, err := calendar.NewGoogleProvider(ctx, tokenSource, cfg.CalendarID, cfg.Timezone)
	if err != nil {
		log.Fatalf("failed to create calendar provider: %v", err)
	}

	// Initialize App Container
	container := app.NewContainer(app.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		DBPool:          pool,
		Provider:        provider,
		Timezone:        cfg.Timezone,
		LockTTL:         cfg.LockTTL,
		HourlyRateCents: cfg.HourlyRateCents,
		Attendees:       cfg.Attendees,
	})

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		log.Printf("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Println("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited gracefully")
}

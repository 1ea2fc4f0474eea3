package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	HTTPAddr        string
	DBDSN           string
	Timezone        *time.Location
	LockTTL         time.Duration
	HourlyRateCents int
	CalendarID      string
	SAEmail         string // service account client email
	SAKeyFile       string // path to the service account PEM private key
	Attendees       []string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// Timezone slots and calendar events are expressed in (default: UTC)
	tzStr := getEnv("TIMEZONE", "UTC")
	cfg.Timezone, err = time.LoadLocation(tzStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Reservation lock TTL, parse as time.Duration (e.g. "300s", "5m").
	ttlStr := getEnv("LOCK_TTL", "300s")
	cfg.LockTTL, err = time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}

	// Coaching rate used to compute the booking total (default: 60.00)
	cfg.HourlyRateCents, err = getEnvAsInt("HOURLY_RATE_CENTS", 6000)
	if err != nil {
		return nil, fmt.Errorf("invalid HOURLY_RATE_CENTS: %w", err)
	}

	// Google Calendar settings are required
	cfg.CalendarID = os.Getenv("GOOGLE_CALENDAR_ID")
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("GOOGLE_CALENDAR_ID is required")
	}
	cfg.SAEmail = os.Getenv("GOOGLE_SA_EMAIL")
	if cfg.SAEmail == "" {
		return nil, fmt.Errorf("GOOGLE_SA_EMAIL is required")
	}
	cfg.SAKeyFile = os.Getenv("GOOGLE_SA_KEY_FILE")
	if cfg.SAKeyFile == "" {
		return nil, fmt.Errorf("GOOGLE_SA_KEY_FILE is required")
	}

	// Standing attendees invited to every event (e.g. the coach), comma-separated
	if attendees := getEnv("EVENT_ATTENDEES", ""); attendees != "" {
		for _, a := range strings.Split(attendees, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Attendees = append(cfg.Attendees, a)
			}
		}
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

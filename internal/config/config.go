package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Google Calendar (calendar of record)
	CalendarID              string
	CalendarCredentialsFile string
	ClinicTimezone          string

	// Reconciliation
	ReconcileInterval   time.Duration
	ReconcileWindowDays int
	ReconcileGrace      time.Duration

	// Scheduled messages
	MessageRunnerInterval time.Duration
	MessageWorkerCount    int
	MessageBatchSize      int

	// Booking policy
	SlotIntervalMinutes    int
	DefaultDurationMinutes int
	CancellationNoticeHrs  int
	BookingDedupeTTL       time.Duration

	// SMS dispatch
	SMSFromNumber string
	TelnyxAPIKey  string
	TelnyxProfile string

	// Square deposits
	SquareAccessToken string
	SquareLocationID  string
	SquareBaseURL     string
	DepositSuccessURL string

	// HTTP surface
	CORSAllowedOrigins []string
	BookingRateLimit   float64
	BookingRateBurst   int
	AdminJWTSecret     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CalendarID:              getEnv("GOOGLE_CALENDAR_ID", ""),
		CalendarCredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", "google-calendar-credentials.json"),
		ClinicTimezone:          getEnv("CLINIC_TIMEZONE", "America/New_York"),

		ReconcileInterval:   getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
		ReconcileWindowDays: getEnvAsInt("RECONCILE_WINDOW_DAYS", 365),
		ReconcileGrace:      getEnvAsDuration("RECONCILE_GRACE", 5*time.Minute),

		MessageRunnerInterval: getEnvAsDuration("MESSAGE_RUNNER_INTERVAL", 30*time.Second),
		MessageWorkerCount:    getEnvAsInt("MESSAGE_WORKER_COUNT", 4),
		MessageBatchSize:      getEnvAsInt("MESSAGE_BATCH_SIZE", 50),

		SlotIntervalMinutes:    getEnvAsInt("SLOT_INTERVAL_MINUTES", 0),
		DefaultDurationMinutes: getEnvAsInt("DEFAULT_DURATION_MINUTES", 60),
		CancellationNoticeHrs:  getEnvAsInt("CANCELLATION_NOTICE_HOURS", 24),
		BookingDedupeTTL:       getEnvAsDuration("BOOKING_DEDUPE_TTL", 24*time.Hour),

		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),
		TelnyxAPIKey:  getEnv("TELNYX_API_KEY", ""),
		TelnyxProfile: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),

		SquareAccessToken: getEnv("SQUARE_ACCESS_TOKEN", ""),
		SquareLocationID:  getEnv("SQUARE_LOCATION_ID", ""),
		SquareBaseURL:     getEnv("SQUARE_BASE_URL", ""),
		DepositSuccessURL: getEnv("DEPOSIT_SUCCESS_URL", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
		BookingRateLimit:   getEnvAsFloat("BOOKING_RATE_LIMIT", 0),
		BookingRateBurst:   getEnvAsInt("BOOKING_RATE_BURST", 10),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// Location resolves the clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping
// empty entries.
func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

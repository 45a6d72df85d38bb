package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string // dev, prod
	HTTPPort string // default 8080

	RedisAddr     string
	RedisUsername string
	RedisPassword string

	CalendarBaseURL    string // provider events API base
	CalendarID         string // required
	CalendarToken      string // bearer token for the events API
	CalendarWebhookURL string // public callback registered by /admin/setup

	BookingAPIBaseURL string
	BookingAPIKey     string

	StripeKey           string
	StripeWebhookSecret string // required
	StripeSuccessURL    string
	StripeCancelURL     string
	ConsultationPrice   int64 // cents
	Currency            string

	AdminSecretHash  string // bcrypt hash of the setup shared secret, required
	RescheduleSecret string // HMAC key for single-use reschedule links
	RescheduleTTL    time.Duration

	ClinicName  string
	DoctorPhone string // WhatsApp destination for doctor notices
	Timezone    string

	PendingHoldTTL time.Duration // how long a Pending slot stays held
	SyncWindow     time.Duration // full-listing horizon when no cursor exists
	LockTTL        time.Duration // Redis slot lock lifetime
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("PORT", "8080"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CalendarBaseURL:    getEnv("CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"),
		CalendarID:         os.Getenv("CALENDAR_ID"),
		CalendarToken:      os.Getenv("CALENDAR_TOKEN"),
		CalendarWebhookURL: os.Getenv("CALENDAR_WEBHOOK_URL"),

		BookingAPIBaseURL: getEnv("BOOKING_API_BASE_URL", "https://api.cal.com/v2"),
		BookingAPIKey:     os.Getenv("BOOKING_API_KEY"),

		StripeKey:           os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeSuccessURL:    os.Getenv("STRIPE_SUCCESS_URL"),
		StripeCancelURL:     os.Getenv("STRIPE_CANCEL_URL"),
		ConsultationPrice:   getInt64("CONSULTATION_PRICE_CENTS", 5000),
		Currency:            getEnv("CURRENCY", "eur"),

		AdminSecretHash:  os.Getenv("ADMIN_SECRET_HASH"),
		RescheduleSecret: os.Getenv("RESCHEDULE_SECRET"),
		RescheduleTTL:    getDuration("RESCHEDULE_TTL", 14*24*time.Hour),

		ClinicName:  getEnv("CLINIC_NAME", "ConsultaMed"),
		DoctorPhone: os.Getenv("DOCTOR_PHONE"),
		Timezone:    getEnv("CLINIC_TIMEZONE", "Europe/Madrid"),

		PendingHoldTTL: getDuration("PENDING_HOLD_TTL", 30*time.Minute),
		SyncWindow:     getDuration("SYNC_WINDOW", 30*24*time.Hour),
		LockTTL:        getDuration("LOCK_TTL", 5*time.Second),
	}

	if cfg.CalendarID == "" {
		return Config{}, errors.New("CALENDAR_ID is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return Config{}, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.AdminSecretHash == "" {
		return Config{}, errors.New("ADMIN_SECRET_HASH is required")
	}
	if cfg.RescheduleSecret == "" {
		return Config{}, errors.New("RESCHEDULE_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

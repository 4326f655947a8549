// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, memory-only audit/incidents if not set)

	// Ticketing backend (ServiceNow table API). All three must be set to
	// leave simulated mode.
	ServiceNowInstance string // e.g. "dev12345.service-now.com"
	ServiceNowUser     string
	ServiceNowPassword string

	// Notification provider (Twilio REST). SID+token+from number required
	// for live delivery; otherwise channels run simulated.
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioFromNumber     string
	TwilioWhatsAppNumber string // falls back to TwilioFromNumber
	AlertDestination     string // E.164 number fraud alerts are sent to; empty disables dispatch

	// Upstream call policy
	UpstreamTimeout time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration

	// Risk scoring. The deltas and boundaries are empirically tuned values
	// carried from the production rule set; they are configuration, not
	// derived quantities.
	HighKeywordDelta      int
	MediumKeywordDelta    int
	OTPRepeatDelta        int // 2nd-3rd OTP mention in a session
	OTPExcessDelta        int // 4th and later mentions
	LargeAmountDelta      int
	ModerateAmountDelta   int
	RapidRequestDelta     int
	StressEmotionDelta    int
	IdentityMismatchDelta int

	LargeAmountThreshold    int64 // rupees
	ModerateAmountThreshold int64
	RapidRequestThreshold   int // amount-bearing requests before the bonus applies
	EmotionStreakThreshold  int

	MediumLevelBoundary int // score >= this is medium
	HighLevelBoundary   int // score >= this is high

	// Audit trail
	AuditRingCapacity int
	AuditRetention    time.Duration

	// Security
	RateLimitRPS int
}

// Defaults. Risk numbers mirror the tuned production rule set.
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultUpstreamTimeoutSec = 10
	DefaultRetryAttempts      = 3
	DefaultRetryBaseDelayMS   = 1000

	DefaultHighKeywordDelta      = 25
	DefaultMediumKeywordDelta    = 8
	DefaultOTPRepeatDelta        = 5
	DefaultOTPExcessDelta        = 20
	DefaultLargeAmountDelta      = 15
	DefaultModerateAmountDelta   = 8
	DefaultRapidRequestDelta     = 10
	DefaultStressEmotionDelta    = 10
	DefaultIdentityMismatchDelta = 20

	DefaultLargeAmountThreshold    = 100000
	DefaultModerateAmountThreshold = 50000
	DefaultRapidRequestThreshold   = 3
	DefaultEmotionStreakThreshold  = 2

	DefaultMediumLevelBoundary = 31
	DefaultHighLevelBoundary   = 61

	DefaultAuditRingCapacity = 1000
	DefaultAuditRetentionDay = 90

	DefaultRateLimit = 100
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", DefaultPort),
		Env:       getEnv("ENV", DefaultEnv),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),

		DatabaseURL: os.Getenv("DATABASE_URL"), // Optional

		ServiceNowInstance: os.Getenv("SERVICENOW_INSTANCE"),
		ServiceNowUser:     os.Getenv("SERVICENOW_USER"),
		ServiceNowPassword: os.Getenv("SERVICENOW_PASSWORD"),

		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:     os.Getenv("TWILIO_PHONE_NUMBER"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		AlertDestination:     os.Getenv("FRAUD_ALERT_NUMBER"),

		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SEC", DefaultUpstreamTimeoutSec)) * time.Second,
		RetryAttempts:   getEnvInt("RETRY_ATTEMPTS", DefaultRetryAttempts),
		RetryBaseDelay:  time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", DefaultRetryBaseDelayMS)) * time.Millisecond,

		HighKeywordDelta:      getEnvInt("RISK_HIGH_KEYWORD_DELTA", DefaultHighKeywordDelta),
		MediumKeywordDelta:    getEnvInt("RISK_MEDIUM_KEYWORD_DELTA", DefaultMediumKeywordDelta),
		OTPRepeatDelta:        getEnvInt("RISK_OTP_REPEAT_DELTA", DefaultOTPRepeatDelta),
		OTPExcessDelta:        getEnvInt("RISK_OTP_EXCESS_DELTA", DefaultOTPExcessDelta),
		LargeAmountDelta:      getEnvInt("RISK_LARGE_AMOUNT_DELTA", DefaultLargeAmountDelta),
		ModerateAmountDelta:   getEnvInt("RISK_MODERATE_AMOUNT_DELTA", DefaultModerateAmountDelta),
		RapidRequestDelta:     getEnvInt("RISK_RAPID_REQUEST_DELTA", DefaultRapidRequestDelta),
		StressEmotionDelta:    getEnvInt("RISK_STRESS_EMOTION_DELTA", DefaultStressEmotionDelta),
		IdentityMismatchDelta: getEnvInt("RISK_IDENTITY_MISMATCH_DELTA", DefaultIdentityMismatchDelta),

		LargeAmountThreshold:    getEnvInt64("RISK_LARGE_AMOUNT_THRESHOLD", DefaultLargeAmountThreshold),
		ModerateAmountThreshold: getEnvInt64("RISK_MODERATE_AMOUNT_THRESHOLD", DefaultModerateAmountThreshold),
		RapidRequestThreshold:   getEnvInt("RISK_RAPID_REQUEST_THRESHOLD", DefaultRapidRequestThreshold),
		EmotionStreakThreshold:  getEnvInt("RISK_EMOTION_STREAK_THRESHOLD", DefaultEmotionStreakThreshold),

		MediumLevelBoundary: getEnvInt("RISK_MEDIUM_BOUNDARY", DefaultMediumLevelBoundary),
		HighLevelBoundary:   getEnvInt("RISK_HIGH_BOUNDARY", DefaultHighLevelBoundary),

		AuditRingCapacity: getEnvInt("AUDIT_RING_CAPACITY", DefaultAuditRingCapacity),
		AuditRetention:    time.Duration(getEnvInt("AUDIT_RETENTION_DAYS", DefaultAuditRetentionDay)) * 24 * time.Hour,

		RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", DefaultRateLimit),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MediumLevelBoundary <= 0 || c.MediumLevelBoundary > 100 {
		return fmt.Errorf("RISK_MEDIUM_BOUNDARY must be in 1..100, got %d", c.MediumLevelBoundary)
	}
	if c.HighLevelBoundary <= c.MediumLevelBoundary || c.HighLevelBoundary > 100 {
		return fmt.Errorf("RISK_HIGH_BOUNDARY must be in %d..100, got %d", c.MediumLevelBoundary+1, c.HighLevelBoundary)
	}
	if c.ModerateAmountThreshold > c.LargeAmountThreshold {
		return fmt.Errorf("RISK_MODERATE_AMOUNT_THRESHOLD (%d) must not exceed RISK_LARGE_AMOUNT_THRESHOLD (%d)",
			c.ModerateAmountThreshold, c.LargeAmountThreshold)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.AuditRingCapacity < 1 {
		return fmt.Errorf("AUDIT_RING_CAPACITY must be at least 1, got %d", c.AuditRingCapacity)
	}
	return nil
}

// TicketingConfigured reports whether a real ServiceNow backend is set up.
func (c *Config) TicketingConfigured() bool {
	return c.ServiceNowInstance != "" && c.ServiceNowUser != "" && c.ServiceNowPassword != ""
}

// NotifierConfigured reports whether a real Twilio account is set up.
func (c *Config) NotifierConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

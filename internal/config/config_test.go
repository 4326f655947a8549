package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultHighKeywordDelta, cfg.HighKeywordDelta)
	assert.Equal(t, DefaultMediumLevelBoundary, cfg.MediumLevelBoundary)
	assert.Equal(t, DefaultHighLevelBoundary, cfg.HighLevelBoundary)
	assert.Equal(t, int64(DefaultLargeAmountThreshold), cfg.LargeAmountThreshold)
	assert.Equal(t, DefaultRetryAttempts, cfg.RetryAttempts)
	assert.Equal(t, 90*24*time.Hour, cfg.AuditRetention)
	assert.False(t, cfg.TicketingConfigured())
	assert.False(t, cfg.NotifierConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "RISK_HIGH_KEYWORD_DELTA", "30")
	setEnv(t, "RISK_HIGH_BOUNDARY", "70")
	setEnv(t, "AUDIT_RETENTION_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30, cfg.HighKeywordDelta)
	assert.Equal(t, 70, cfg.HighLevelBoundary)
	assert.Equal(t, 30*24*time.Hour, cfg.AuditRetention)
}

func TestLoad_InvalidBoundaries(t *testing.T) {
	setEnv(t, "RISK_MEDIUM_BOUNDARY", "80")
	setEnv(t, "RISK_HIGH_BOUNDARY", "61")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RISK_HIGH_BOUNDARY")
}

func TestLoad_InvalidAmountThresholds(t *testing.T) {
	setEnv(t, "RISK_MODERATE_AMOUNT_THRESHOLD", "200000")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RISK_MODERATE_AMOUNT_THRESHOLD")
}

func TestTicketingConfigured(t *testing.T) {
	setEnv(t, "SERVICENOW_INSTANCE", "dev1.service-now.com")
	setEnv(t, "SERVICENOW_USER", "api")
	setEnv(t, "SERVICENOW_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TicketingConfigured())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero retry attempts", func(c *Config) { c.RetryAttempts = 0 }, true},
		{"zero ring capacity", func(c *Config) { c.AuditRingCapacity = 0 }, true},
		{"medium boundary above 100", func(c *Config) { c.MediumLevelBoundary = 101; c.HighLevelBoundary = 102 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				MediumLevelBoundary:     DefaultMediumLevelBoundary,
				HighLevelBoundary:       DefaultHighLevelBoundary,
				ModerateAmountThreshold: DefaultModerateAmountThreshold,
				LargeAmountThreshold:    DefaultLargeAmountThreshold,
				RetryAttempts:           DefaultRetryAttempts,
				AuditRingCapacity:       DefaultAuditRingCapacity,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

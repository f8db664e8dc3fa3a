package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.API.Port)
	assert.Equal(t, 5*time.Minute, cfg.Ingest.Interval)
	assert.Equal(t, 60*time.Second, cfg.Ingest.FetchTimeout)
	assert.True(t, cfg.Ingest.SchedulerEnabled)
	assert.Equal(t, "nse", cfg.Source.Provider)
	assert.Equal(t, "https://www.nseindia.com", cfg.Source.BaseURL)
	assert.Equal(t, 3, cfg.Store.RetentionSessions)
	assert.Equal(t, 5*time.Minute, cfg.Store.Bucket)
	assert.Equal(t, "http://localhost:8000/api/v1/trigger-update", cfg.Cron.TargetURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SOURCE_PROVIDER", "mock")
	t.Setenv("API_PORT", "9090")
	t.Setenv("INGEST_INTERVAL", "90s")
	t.Setenv("INGEST_SCHEDULER_ENABLED", "false")
	t.Setenv("SOURCE_SYMBOLS", "RELIANCE, TCS ,INFY")
	t.Setenv("STORE_RETENTION_SESSIONS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Source.Provider)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, 90*time.Second, cfg.Ingest.Interval)
	assert.False(t, cfg.Ingest.SchedulerEnabled)
	assert.Equal(t, []string{"RELIANCE", "TCS", "INFY"}, cfg.Source.Symbols)
	assert.Equal(t, 5, cfg.Store.RetentionSessions)
}

func TestLoadMalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("INGEST_INTERVAL", "whenever")
	t.Setenv("SOURCE_REQUESTS_PER_SECOND", "fast")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.API.Port)
	assert.Equal(t, 5*time.Minute, cfg.Ingest.Interval)
	assert.Equal(t, 2.0, cfg.Source.RequestsPerSecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Source.Provider = "bloomberg" },
			wantErr: "SOURCE_PROVIDER",
		},
		{
			name:    "non-positive interval",
			mutate:  func(c *Config) { c.Ingest.Interval = 0 },
			wantErr: "INGEST_INTERVAL",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Store.RetentionSessions = 0 },
			wantErr: "STORE_RETENTION_SESSIONS",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "API_PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

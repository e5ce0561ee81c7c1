package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 24*time.Hour, cfg.GrantDefaultDuration)
				assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
				assert.Equal(t, time.Hour, cfg.WarningInterval)
				assert.Equal(t, 2*time.Hour, cfg.WarningWindow)
				assert.Empty(t, cfg.NotifierTopicURL)
				assert.Equal(t, 10, cfg.NotifierRatePerSec)
				assert.Equal(t, 20, cfg.NotifierBurst)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "grants", cfg.MetricsNamespace)
				assert.Equal(t, 8081, cfg.MetricsPort)
			},
		},
		{
			name: "load custom sweeper configuration",
			envVars: map[string]string{
				"SWEEP_INTERVAL_MINUTES":   "5",
				"WARNING_INTERVAL_MINUTES": "30",
				"WARNING_WINDOW_HOURS":     "4",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
				assert.Equal(t, 30*time.Minute, cfg.WarningInterval)
				assert.Equal(t, 4*time.Hour, cfg.WarningWindow)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":                    "mysql",
				"DB_CONNECTION_STRING":         "user:password@tcp(localhost:3306)/medvault",
				"DB_MAX_OPEN_CONNECTIONS":      "50",
				"DB_MAX_IDLE_CONNECTIONS":      "10",
				"DB_CONN_MAX_LIFETIME":         "10",
				"GRANT_DEFAULT_DURATION_HOURS": "48",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/medvault", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, 48*time.Hour, cfg.GrantDefaultDuration)
			},
		},
		{
			name: "load custom notifier configuration",
			envVars: map[string]string{
				"NOTIFIER_TOPIC_URL":    "mem://notifications",
				"NOTIFIER_RATE_PER_SEC": "2",
				"NOTIFIER_BURST":        "5",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mem://notifications", cfg.NotifierTopicURL)
				assert.Equal(t, 2, cfg.NotifierRatePerSec)
				assert.Equal(t, 5, cfg.NotifierBurst)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

package config

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "DATABASE_DRIVER", "APP_TIMEZONE", "SMTP_HOST", "SMTP_PORT", "DAILY_PROMPT_SCHEDULE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "*/5 * * * *", cfg.DailyPromptSchedule)
	assert.NotNil(t, cfg.Location)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadDatabaseDriver(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
	}{
		{name: "postgres", input: "postgres", expected: "postgres"},
		{name: "sqlite3", input: "sqlite3", expected: "sqlite3"},
		{name: "sqlite alias", input: "sqlite", expected: "sqlite3"},
		{name: "mixed case", input: " SQLite3 ", expected: "sqlite3"},
		{name: "unknown driver", input: "mysql", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_DRIVER", tt.input)

			cfg, err := Load()
			if tt.shouldError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.DatabaseDriver)
		})
	}
}

func TestLoadTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Europe/Bucharest")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Bucharest", cfg.Location.String())

	t.Setenv("APP_TIMEZONE", "Not/AZone")
	_, err = Load()
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	require.Error(t, err)
}

func TestClientURLs(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		resetPage  string
		afterLogin string
	}{
		{
			name:       "served by this server",
			cfg:        Config{BaseURL: "https://kitchen.example.com/"},
			resetPage:  "https://kitchen.example.com/reset-password/",
			afterLogin: "/api/auth/me",
		},
		{
			name:       "separate frontend",
			cfg:        Config{BaseURL: "https://api.example.com", FrontendURL: "https://app.example.com/"},
			resetPage:  "https://app.example.com/reset-password/",
			afterLogin: "https://app.example.com/table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.resetPage, tt.cfg.ResetPageURL())
			assert.Equal(t, tt.afterLogin, tt.cfg.AfterLoginURL())
		})
	}
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) func() {
	originalValues := make(map[string]string)
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	for name, value := range envVars {
		err := os.Setenv(name, value)
		require.NoError(t, err, "Failed to set environment variable %s", name)
	}

	return func() {
		for name, value := range originalValues {
			if value == "" {
				os.Unsetenv(name)
			} else {
				os.Setenv(name, value)
			}
		}
	}
}

// TestLoadDefaults verifies that Load falls back to defaults for everything
// except the token secret.
func TestLoadDefaults(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"SCRY_AUTH_TOKEN_SECRET": testSecret,
		"SCRY_SERVER_PORT":       "",
		"SCRY_SERVER_LOG_LEVEL":  "",
		"SCRY_TASK_WORKER_COUNT": "",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 4, cfg.Task.WorkerCount)
	assert.Equal(t, 100, cfg.Task.QueueSize)
	assert.Equal(t, time.Duration(0), cfg.Task.Timeout(), "no task timeout by default")
	assert.Equal(t, time.Hour, cfg.Session.TTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Stream.PollInterval())
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifetime())
}

// TestLoadFromEnv verifies that the Load function correctly reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"SCRY_SERVER_PORT":                 "9090",
		"SCRY_SERVER_LOG_LEVEL":            "debug",
		"SCRY_AUTH_TOKEN_SECRET":           testSecret,
		"SCRY_TASK_WORKER_COUNT":           "8",
		"SCRY_TASK_TIMEOUT_SECONDS":        "30",
		"SCRY_SESSION_TTL_MINUTES":         "5",
		"SCRY_STREAM_POLL_INTERVAL_MS":     "250",
		"SCRY_AUTH_TOKEN_LIFETIME_MINUTES": "15",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, testSecret, cfg.Auth.TokenSecret)
	assert.Equal(t, 8, cfg.Task.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.Task.Timeout())
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL())
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.PollInterval())
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenLifetime())
}

// TestLoadValidationErrors verifies that the Load function correctly validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name: "Missing token secret",
			envVars: map[string]string{
				"SCRY_SERVER_PORT": "9090",
			},
		},
		{
			name: "Invalid port number",
			envVars: map[string]string{
				"SCRY_SERVER_PORT":       "999999",
				"SCRY_AUTH_TOKEN_SECRET": testSecret,
			},
		},
		{
			name: "Invalid log level",
			envVars: map[string]string{
				"SCRY_SERVER_LOG_LEVEL":  "invalid-level",
				"SCRY_AUTH_TOKEN_SECRET": testSecret,
			},
		},
		{
			name: "Short token secret",
			envVars: map[string]string{
				"SCRY_AUTH_TOKEN_SECRET": "tooshort",
			},
		},
		{
			name: "Zero workers",
			envVars: map[string]string{
				"SCRY_AUTH_TOKEN_SECRET": testSecret,
				"SCRY_TASK_WORKER_COUNT": "0",
			},
		},
		{
			name: "Stream poll interval too small",
			envVars: map[string]string{
				"SCRY_AUTH_TOKEN_SECRET":       testSecret,
				"SCRY_STREAM_POLL_INTERVAL_MS": "1",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Make sure the secret from another case does not leak in
			if _, ok := tc.envVars["SCRY_AUTH_TOKEN_SECRET"]; !ok {
				tc.envVars["SCRY_AUTH_TOKEN_SECRET"] = ""
			}
			cleanup := setupEnv(t, tc.envVars)
			defer cleanup()

			cfg, err := Load()

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

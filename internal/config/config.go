package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	Session SessionConfig `mapstructure:"session" validate:"required"`
	Stream  StreamConfig  `mapstructure:"stream" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// AuthConfig contains the settings used to sign and verify client tokens.
type AuthConfig struct {
	TokenSecret          string `mapstructure:"token_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TaskConfig controls the execution supervisor.
type TaskConfig struct {
	// WorkerCount determines how many task bodies run concurrently
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	// QueueSize is the number of started tasks that may wait for a worker
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
	// TimeoutSeconds bounds a single task body; zero disables the limit
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=0"`
	// IDAttempts is how many times id generation is retried on collision
	IDAttempts int `mapstructure:"id_attempts" validate:"required,gt=0"`
}

// SessionConfig controls retention of per-client task sessions.
type SessionConfig struct {
	TTLMinutes           int `mapstructure:"ttl_minutes" validate:"required,gt=0"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
}

// StreamConfig controls the live status streams.
type StreamConfig struct {
	PollIntervalMilliseconds int `mapstructure:"poll_interval_ms" validate:"required,gte=10"`
}

// ShutdownTimeout returns the graceful shutdown window as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TokenLifetime returns the client token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// Timeout returns the per-task timeout, zero meaning none.
func (c TaskConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns how long an idle session is retained.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// SweepInterval returns how often idle sessions are evicted.
func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// PollInterval returns the stream re-read interval.
func (c StreamConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMilliseconds) * time.Millisecond
}

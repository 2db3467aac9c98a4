// Package logger builds the process-wide slog JSON logger and carries
// request-scoped loggers through a context.
package logger

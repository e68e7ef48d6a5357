// Package logger builds configured slog loggers with JSON or text output,
// static service attributes, and context-driven attribute extraction so that
// request and checkout correlation ids appear on every record automatically.
package logger

// Package observe provides tracing, metrics and structured logging for the
// gateway. Spans and instruments come from OpenTelemetry; logs are JSON
// records written through log/slog with sensitive keys redacted.
package observe

package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("upstream", "brasilapi"))

	logger.Error(context.Background(), "lookup failed", F("kind", "cnpj"), F("duration_ms", 50.5))

	entry := decodeLine(t, &buf)
	if entry["msg"] != "lookup failed" || entry["level"] != "ERROR" {
		t.Errorf("msg/level = %v/%v", entry["msg"], entry["level"])
	}
	if entry["upstream"] != "brasilapi" || entry["kind"] != "cnpj" || entry["duration_ms"] != 50.5 {
		t.Errorf("fields missing: %v", entry)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	if buf.Len() != 0 {
		t.Errorf("below-level records written: %s", buf.String())
	}

	logger.Warn(context.Background(), "warn")
	if !strings.Contains(buf.String(), `"warn"`) {
		t.Errorf("warn record missing: %s", buf.String())
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "auth", F("api_key", "tvly-123"), F("token", "eyJ"), F("client", "10.0.0.1"))

	out := buf.String()
	if strings.Contains(out, "tvly-123") || strings.Contains(out, "eyJ") {
		t.Errorf("secret leaked: %s", out)
	}
	entry := decodeLine(t, &buf)
	if entry["api_key"] != "[REDACTED]" || entry["client"] != "10.0.0.1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Info(ctx, "inside span")
	span.End()

	entry := decodeLine(t, &buf)
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entry["trace_id"], span.SpanContext().TraceID())
	}
	if entry["span_id"] == nil {
		t.Error("span_id missing")
	}
}

func TestLogger_NilContextAndSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := FromSlog(slog.New(slog.NewJSONHandler(&buf, nil)))

	//nolint:staticcheck // nil context is tolerated.
	logger.Info(nil, "no context")
	if !strings.Contains(buf.String(), "no context") {
		t.Errorf("record missing: %s", buf.String())
	}

	if _, ok := FromSlog(nil).(nopLogger); !ok {
		t.Error("FromSlog(nil) should return the no-op logger")
	}
}

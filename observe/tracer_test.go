package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracer(tp.Tracer("test")), rec
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.AsString(), true
		}
	}
	return "", false
}

func TestOperation_SpanName(t *testing.T) {
	if got := (Operation{Kind: "intelligence"}).SpanName(); got != "gateway.intelligence" {
		t.Errorf("SpanName() = %q", got)
	}
}

func TestTracer_SpanAttributesAndStatus(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), Operation{Kind: "cnpj", Upstream: "brasilapi"})
	tracer.EndSpan(span, nil)

	_, span = tracer.StartSpan(context.Background(), Operation{Kind: "cep"})
	tracer.EndSpan(span, errors.New("upstream 502"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}

	ok := spans[0]
	if ok.Name() != "gateway.cnpj" || ok.Status().Code != codes.Ok {
		t.Errorf("span 0 = %s/%v", ok.Name(), ok.Status().Code)
	}
	if v, _ := attrValue(ok.Attributes(), "gateway.upstream"); v != "brasilapi" {
		t.Errorf("gateway.upstream = %q", v)
	}

	failed := spans[1]
	if failed.Status().Code != codes.Error || len(failed.Events()) == 0 {
		t.Errorf("failed span status = %v events = %d", failed.Status().Code, len(failed.Events()))
	}
	if _, present := attrValue(failed.Attributes(), "gateway.upstream"); present {
		t.Error("empty upstream should not be recorded")
	}
}

func TestNopTracer(t *testing.T) {
	tr := NewTracer(nil)
	ctx, span := tr.StartSpan(context.Background(), Operation{Kind: "cnpj"})
	if ctx == nil || span == nil {
		t.Fatal("nop tracer returned nil")
	}
	tr.EndSpan(span, errors.New("ignored"))
}

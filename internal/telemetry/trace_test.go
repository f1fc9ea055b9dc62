package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an SDK provider backed by an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(createResource(DefaultConfig())),
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	providerMu.Lock()
	globalProvider = tp
	providerMu.Unlock()

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		providerMu.Lock()
		globalProvider = nil
		providerMu.Unlock()
	})

	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartCommandSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	spanCtx, span := StartCommandSpan(ctx, "answer")
	if spanCtx == ctx {
		t.Error("expected new context with span, got same context")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "command.answer" {
		t.Errorf("span name = %q, want command.answer", spans[0].Name)
	}
	if v, ok := attrValue(spans[0].Attributes, "component"); !ok || v.AsString() != "cli" {
		t.Errorf("expected component=cli, got %v", spans[0].Attributes)
	}
}

func TestStartFlowSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartFlowSpan(context.Background(), "submit", 42)
	RecordDuration(span, "submit", 1500*time.Millisecond)
	RecordSuccess(span, attribute.Bool("complete", true))
	span.End()

	got := exporter.GetSpans()[0]
	if got.Name != "flow.submit" {
		t.Errorf("span name = %q", got.Name)
	}
	if v, _ := attrValue(got.Attributes, "project.id"); v.AsInt64() != 42 {
		t.Errorf("expected project.id=42, got %v", v)
	}
	if v, _ := attrValue(got.Attributes, "submit_ms"); v.AsInt64() != 1500 {
		t.Errorf("expected submit_ms=1500, got %v", v)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", got.Status.Code)
	}
}

func TestRecordError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartCommandSpan(context.Background(), "report")
	RecordError(span, nil)
	RecordError(span, errors.New("backend down"))
	span.End()

	got := exporter.GetSpans()[0]
	if got.Status.Code != codes.Error || got.Status.Description != "backend down" {
		t.Errorf("unexpected status %+v", got.Status)
	}
	if len(got.Events) != 1 {
		t.Errorf("expected one exception event, got %d", len(got.Events))
	}
}

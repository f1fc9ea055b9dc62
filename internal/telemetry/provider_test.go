package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
	if _, ok := GetTracerProvider().(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", GetTracerProvider())
	}
}

func TestInitProviderEnabled(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		rate     float64
	}{
		{"no exporter", "", 1.0},
		{"host and port", "localhost:4318", 0.5},
		{"full url", "http://localhost:4318/v1/traces", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Enabled = true
			cfg.Endpoint = tt.endpoint
			cfg.SampleRate = tt.rate

			ctx := context.Background()
			shutdown, err := InitProvider(ctx, cfg)
			if err != nil {
				t.Fatalf("InitProvider failed: %v", err)
			}
			if _, ok := GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Errorf("expected SDK provider, got %T", GetTracerProvider())
			}
			if err := ForceFlush(ctx); err != nil && tt.endpoint == "" {
				t.Errorf("ForceFlush failed: %v", err)
			}
			_ = shutdown(ctx)
		})
	}
}

func TestShutdownWithoutProvider(t *testing.T) {
	providerMu.Lock()
	globalShutdown = nil
	globalProvider = nil
	providerMu.Unlock()

	ctx := context.Background()
	if err := Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}
	if GetTracerProvider() == nil {
		t.Fatal("expected a fallback provider")
	}
}

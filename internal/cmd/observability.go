package cmd

import (
	"context"
	"time"

	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/telemetry"
	"github.com/felixgeelhaar/nexora/internal/version"
)

// setupObservability installs the command logger as the default, makes
// sure metrics exist and starts tracing when enabled. It returns a cleanup
// function that flushes pending spans.
func setupObservability(ctx context.Context, cc *CommandContext) func() {
	log.SetDefaultLogger(cc.Logger)
	metrics.InitDefault()
	return setupTelemetry(ctx, cc)
}

func setupTelemetry(ctx context.Context, cc *CommandContext) func() {
	tc := cc.Config.Telemetry
	if !tc.Enabled {
		return func() {}
	}

	telemCfg := telemetry.DefaultConfig()
	telemCfg.ServiceVersion = version.GetInfo().Version
	telemCfg.Enabled = true
	telemCfg.Endpoint = tc.Endpoint
	telemCfg.SampleRate = clampSampleRate(tc.SampleRate)

	shutdown, err := telemetry.InitProvider(ctx, telemCfg)
	if err != nil {
		cc.Logger.Warn("Failed to initialize telemetry", "error", err)
		return func() {}
	}

	cc.Logger.Debug("Telemetry enabled",
		"endpoint", telemCfg.Endpoint,
		"sample_rate", telemCfg.SampleRate,
	)

	return func() {
		if shutdown == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			cc.Logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}

func clampSampleRate(value float64) float64 {
	switch {
	case value <= 0:
		return 0.0
	case value >= 1:
		return 1.0
	default:
		return value
	}
}

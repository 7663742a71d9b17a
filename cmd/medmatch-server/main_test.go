package main

import (
	"testing"
)

func TestResolveRateLimit_UsesConfiguredValues(t *testing.T) {
	cfg := resolveRateLimit(25, 50)
	if cfg.RequestsPerSecond != 25 {
		t.Errorf("expected 25 rps, got %f", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize != 50 {
		t.Errorf("expected burst 50, got %d", cfg.BurstSize)
	}
}

func TestResolveRateLimit_FallsBackToDefaults(t *testing.T) {
	for _, rps := range []float64{0, -1} {
		cfg := resolveRateLimit(rps, 10)
		if cfg.RequestsPerSecond != 100 {
			t.Errorf("rps=%f: expected default 100 rps, got %f", rps, cfg.RequestsPerSecond)
		}
		if cfg.BurstSize != 200 {
			t.Errorf("rps=%f: expected default burst 200, got %d", rps, cfg.BurstSize)
		}
	}
}

func TestNewLogger_DoesNotPanic(t *testing.T) {
	for _, env := range []string{"development", "production", ""} {
		logger := newLogger(env)
		logger.Debug().Str("env", env).Msg("logger smoke test")
	}
}

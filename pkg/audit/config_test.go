package audit

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RetentionDays != 90 {
		t.Errorf("expected default retention 90, got %d", cfg.RetentionDays)
	}
	if !cfg.LogDenied {
		t.Error("expected LogDenied to default to true")
	}
	if !cfg.Enabled {
		t.Error("expected Enabled to default to true")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REGISTRY_AUDIT_RETENTION_DAYS", "30")
	t.Setenv("REGISTRY_AUDIT_LOG_DENIED", "false")
	t.Setenv("REGISTRY_AUDIT_ENABLED", "false")

	cfg := ConfigFromEnv()

	if cfg.RetentionDays != 30 {
		t.Errorf("expected retention 30, got %d", cfg.RetentionDays)
	}
	if cfg.LogDenied {
		t.Error("expected LogDenied false")
	}
	if cfg.Enabled {
		t.Error("expected Enabled false")
	}
}

func TestConfigFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("REGISTRY_AUDIT_RETENTION_DAYS", "not-a-number")

	cfg := ConfigFromEnv()

	if cfg.RetentionDays != 90 {
		t.Errorf("expected retention to stay 90, got %d", cfg.RetentionDays)
	}
}

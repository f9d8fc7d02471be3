package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Server.Host)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}

	if cfg.Hub.MaxLogs != 100 {
		t.Errorf("expected max_logs 100, got %d", cfg.Hub.MaxLogs)
	}
	if cfg.Hub.StaleAfterSeconds != 900 {
		t.Errorf("expected stale_after_seconds 900, got %d", cfg.Hub.StaleAfterSeconds)
	}
	if cfg.Hub.RemoveAfterSeconds != 3600 {
		t.Errorf("expected remove_after_seconds 3600, got %d", cfg.Hub.RemoveAfterSeconds)
	}
	if cfg.Hub.ReaperIntervalSeconds != 60 {
		t.Errorf("expected reaper_interval_seconds 60, got %d", cfg.Hub.ReaperIntervalSeconds)
	}
	if cfg.Hub.BreakerFailureThreshold != 5 {
		t.Errorf("expected breaker_failure_threshold 5, got %d", cfg.Hub.BreakerFailureThreshold)
	}
	if cfg.Hub.BreakerCooldownSeconds != 60 {
		t.Errorf("expected breaker_cooldown_seconds 60, got %d", cfg.Hub.BreakerCooldownSeconds)
	}
	if !cfg.Hub.LegacyErrorStatus {
		t.Error("expected legacy_error_status to default true")
	}
}

func TestHubConfigDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.Hub.StaleAfter(); got.Seconds() != 900 {
		t.Errorf("StaleAfter() = %v, want 900s", got)
	}
	if got := cfg.Hub.RemoveAfter(); got.Seconds() != 3600 {
		t.Errorf("RemoveAfter() = %v, want 3600s", got)
	}
	if got := cfg.Hub.ReaperInterval(); got.Seconds() != 60 {
		t.Errorf("ReaperInterval() = %v, want 60s", got)
	}
	if got := cfg.Hub.BreakerCooldown(); got.Seconds() != 60 {
		t.Errorf("BreakerCooldown() = %v, want 60s", got)
	}
}

func withTempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return dir
}

func TestLoadWithoutConfigFile(t *testing.T) {
	withTempWorkdir(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error for missing config file: %v", err)
	}
	if cfg.Hub.MaxLogs != 100 {
		t.Errorf("expected default max_logs when no file present, got %d", cfg.Hub.MaxLogs)
	}
}

func TestLoadWithEnvironmentOverride(t *testing.T) {
	withTempWorkdir(t)

	t.Setenv("HUB_MAX_LOGS", "250")
	t.Setenv("HUB_BREAKER_FAILURE_THRESHOLD", "9")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Hub.MaxLogs != 250 {
		t.Errorf("expected HUB_MAX_LOGS override to take effect, got %d", cfg.Hub.MaxLogs)
	}
	if cfg.Hub.BreakerFailureThreshold != 9 {
		t.Errorf("expected HUB_BREAKER_FAILURE_THRESHOLD override to take effect, got %d", cfg.Hub.BreakerFailureThreshold)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := withTempWorkdir(t)

	yaml := []byte("hub:\n  max_logs: 42\n  stale_after_seconds: 120\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Hub.MaxLogs != 42 {
		t.Errorf("expected max_logs 42 from config file, got %d", cfg.Hub.MaxLogs)
	}
	if cfg.Hub.StaleAfterSeconds != 120 {
		t.Errorf("expected stale_after_seconds 120 from config file, got %d", cfg.Hub.StaleAfterSeconds)
	}
}

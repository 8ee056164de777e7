package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "propsweep" {
		t.Errorf("expected Name=propsweep, got %s", cfg.Name)
	}
	if cfg.Retry.MaxAttempts != 8 {
		t.Errorf("expected MaxAttempts=8, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Sweep.Workers != 1 {
		t.Errorf("expected sequential default (Workers=1), got %d", cfg.Sweep.Workers)
	}
	if cfg.Sweep.StopAtTarget {
		t.Error("expected stop_at_target to be off by default")
	}
	if cfg.Sweep.IDProbe {
		t.Error("expected id_probe to be off by default")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("PROPSWEEP_API_TOKEN", "")
	t.Setenv("PROPSWEEP_BASE_URL", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "propsweep.yaml")

	cfg := DefaultConfig()
	cfg.API.Token = "tok-test"
	cfg.Sweep.Limits = []int{5, 15}
	cfg.Report.Expected = 412

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.Token != "tok-test" {
		t.Errorf("expected Token=tok-test, got %s", loaded.API.Token)
	}
	if len(loaded.Sweep.Limits) != 2 || loaded.Sweep.Limits[1] != 15 {
		t.Errorf("expected limits [5 15], got %v", loaded.Sweep.Limits)
	}
	if loaded.Report.Expected != 412 {
		t.Errorf("expected Expected=412, got %d", loaded.Report.Expected)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("PROPSWEEP_API_TOKEN", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("expected default base url, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	// Default has no token
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing token")
	}

	cfg.API.Token = "tok"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.API.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid base url error")
	}
	cfg.API.BaseURL = "https://api.example.com"

	cfg.Retry.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected max_attempts error")
	}
	cfg.Retry.MaxAttempts = 3

	cfg.Sweep.MergePolicy = "last-seen"
	if err := cfg.Validate(); err == nil {
		t.Error("expected merge policy error")
	}
	cfg.Sweep.MergePolicy = "fill-missing"

	cfg.Export.Formats = []string{"xml"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected export format error")
	}
}

func TestRetryDurations(t *testing.T) {
	r := RetryConfig{MinThrottle: "100ms", BackoffStep: "bogus", BackoffCeiling: "1m"}
	if got := r.GetMinThrottle(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", got)
	}
	if got := r.GetBackoffStep(); got != 2*time.Second {
		t.Errorf("expected fallback 2s, got %v", got)
	}
	if got := r.GetBackoffCeiling(); got != time.Minute {
		t.Errorf("expected 1m, got %v", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("fetch") {
		t.Error("expected disabled when debug_mode is false")
	}
	lc.DebugMode = true
	if !lc.IsCategoryEnabled("fetch") {
		t.Error("expected enabled with no category map")
	}
	lc.Categories = map[string]bool{"fetch": false}
	if lc.IsCategoryEnabled("fetch") {
		t.Error("expected fetch disabled")
	}
	if !lc.IsCategoryEnabled("discovery") {
		t.Error("expected unspecified category enabled")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := &Config{Worker: WorkerConfig{Binary: "node"}}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaulted config should validate: %v", err)
	}
	if cfg.Resilience.Bulkhead.MaxConcurrent != 1 {
		t.Errorf("expected bulkhead default of 1, got %d", cfg.Resilience.Bulkhead.MaxConcurrent)
	}
	if cfg.Resilience.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts by default, got %d", cfg.Resilience.Retry.MaxAttempts)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("logging must default to stderr, got %s", cfg.Logging.Output)
	}
}

func TestConfig_ValidateRejectsMissingBinary(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing worker.binary")
	}
}

func TestConfig_ValidateRejectsBadJitter(t *testing.T) {
	cfg := &Config{Worker: WorkerConfig{Binary: "node"}}
	cfg.ApplyDefaults()
	cfg.Resilience.Retry.Jitter = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for jitter outside [0, 1]")
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workerlink.yml")
	data := `
worker:
  binary: node
  args: ["worker.js"]
  min_runtime_major: 18
  grace_period: 2s
calls:
  request_timeout: 10s
resilience:
  breaker:
    failure_threshold: 7
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Worker.Binary != "node" {
		t.Errorf("expected binary node, got %s", cfg.Worker.Binary)
	}
	if cfg.Worker.MinRuntimeMajor != 18 {
		t.Errorf("expected min major 18, got %d", cfg.Worker.MinRuntimeMajor)
	}
	if cfg.Worker.GracePeriod != 2*time.Second {
		t.Errorf("expected 2s grace period, got %v", cfg.Worker.GracePeriod)
	}
	if cfg.Calls.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s request timeout, got %v", cfg.Calls.RequestTimeout)
	}
	if cfg.Resilience.Breaker.FailureThreshold != 7 {
		t.Errorf("expected failure threshold 7, got %d", cfg.Resilience.Breaker.FailureThreshold)
	}
	// Unset sections fall back to defaults.
	if cfg.Resilience.RateLimit.Rate != 10 {
		t.Errorf("expected default rate 10, got %v", cfg.Resilience.RateLimit.Rate)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workerlink.yml")
	if err := os.WriteFile(path, []byte("worker:\n  binary: node\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("WORKERLINK_WORKER_BINARY", "python3")

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Worker.Binary != "python3" {
		t.Errorf("environment should override the file, got %s", cfg.Worker.Binary)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "workerlink.yml")
	if err := os.WriteFile(configPath, []byte("worker:\n  binary: node\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("WORKERLINK_CALLS_REQUEST_TIMEOUT=7s\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("WORKERLINK_CALLS_REQUEST_TIMEOUT") })

	cfg, err := Load(WithConfigFile(configPath), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Calls.RequestTimeout != 7*time.Second {
		t.Errorf("expected 7s from the env file, got %v", cfg.Calls.RequestTimeout)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workerlink.yml")
	data := "worker:\n  binary: node\nresilience:\n  retry:\n    jitter: 2.0\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(WithConfigFile(path)); err == nil {
		t.Fatal("expected validation failure for out-of-range jitter")
	}
}

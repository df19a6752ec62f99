package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goerrors "github.com/linebridge/workerlink/errors"
)

// writeScript drops an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-runtime")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func stopSupervisor(t *testing.T, s *Supervisor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("stop failed: %v", err)
	}
}

func TestSupervisor_StartAndStop(t *testing.T) {
	s := NewSupervisor(Config{Binary: "cat"}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !s.IsAlive() {
		t.Error("worker should be alive after start")
	}
	if s.PID() <= 0 {
		t.Errorf("expected a valid pid, got %d", s.PID())
	}
	if s.Stdin() == nil || s.Stdout() == nil {
		t.Error("stdio pipes should be open while running")
	}

	stopSupervisor(t, s)
	if s.IsAlive() {
		t.Error("worker should not be alive after stop")
	}
}

func TestSupervisor_StopWithoutStart(t *testing.T) {
	s := NewSupervisor(Config{Binary: "cat"}, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop of a never-started supervisor should be a no-op, got %v", err)
	}
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	s := NewSupervisor(Config{Binary: "/nonexistent/worker-runtime"}, nil)

	err := s.Start(context.Background())
	if goerrors.CodeOf(err) != goerrors.ErrCodeConnectionFailed {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}
	if s.IsAlive() {
		t.Error("nothing should be alive after a failed spawn")
	}
}

func TestSupervisor_VersionGateBlocksOldRuntime(t *testing.T) {
	script := writeScript(t, `echo "v16.20.2"`)
	s := NewSupervisor(Config{Binary: script, MinRuntimeMajor: 18}, nil)

	err := s.Start(context.Background())
	if goerrors.CodeOf(err) != goerrors.ErrCodeRuntimeIncompatible {
		t.Fatalf("expected RUNTIME_INCOMPATIBLE, got %v", err)
	}
	if s.IsAlive() {
		t.Error("worker must not be spawned when the gate fails")
	}
	appErr, _ := goerrors.AsAppError(err)
	if appErr.Details["version"] != "v16.20.2" {
		t.Errorf("expected observed version in details, got %v", appErr.Details)
	}
}

func TestSupervisor_VersionGateBlocksMissingRuntime(t *testing.T) {
	s := NewSupervisor(Config{
		Binary:          "/nonexistent/worker-runtime",
		MinRuntimeMajor: 18,
	}, nil)

	err := s.Start(context.Background())
	if goerrors.CodeOf(err) != goerrors.ErrCodeRuntimeIncompatible {
		t.Fatalf("expected RUNTIME_INCOMPATIBLE, got %v", err)
	}
}

func TestSupervisor_VersionGateBlocksGarbageOutput(t *testing.T) {
	script := writeScript(t, `echo "command not found"`)
	s := NewSupervisor(Config{Binary: script, MinRuntimeMajor: 18}, nil)

	err := s.Start(context.Background())
	if goerrors.CodeOf(err) != goerrors.ErrCodeRuntimeIncompatible {
		t.Fatalf("expected RUNTIME_INCOMPATIBLE, got %v", err)
	}
}

func TestSupervisor_VersionGatePasses(t *testing.T) {
	script := writeScript(t, `if [ "$1" = "--version" ]; then echo "v20.11.1"; exit 0; fi
exec cat`)
	s := NewSupervisor(Config{Binary: script, MinRuntimeMajor: 18}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer stopSupervisor(t, s)

	if got := s.RuntimeVersion().String(); got != "v20.11.1" {
		t.Errorf("expected v20.11.1, got %s", got)
	}
}

func TestSupervisor_UnexpectedExitFlipsAlive(t *testing.T) {
	script := writeScript(t, `exit 0`)
	s := NewSupervisor(Config{Binary: script}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.IsAlive() {
		if time.Now().After(deadline) {
			t.Fatal("alive flag never flipped after the worker exited")
		}
		time.Sleep(10 * time.Millisecond)
	}
	stopSupervisor(t, s)
}

func TestSupervisor_TwoPhaseTermination(t *testing.T) {
	// A worker that ignores SIGTERM must still be gone after Stop.
	script := writeScript(t, `trap "" TERM
while true; do sleep 1; done`)
	s := NewSupervisor(Config{
		Binary:      script,
		GracePeriod: 200 * time.Millisecond,
	}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	start := time.Now()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("two-phase termination took too long: %v", elapsed)
	}
	if s.IsAlive() {
		t.Error("worker should be dead after SIGKILL")
	}
}

func TestSupervisor_DoubleStartRejected(t *testing.T) {
	s := NewSupervisor(Config{Binary: "cat"}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer stopSupervisor(t, s)

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second start should be rejected while the worker runs")
	}
}

func TestBuildEnv_AllowlistOnly(t *testing.T) {
	t.Setenv("WORKERLINK_TEST_SECRET", "should-not-leak")
	t.Setenv("WORKERLINK_TEST_EXTRA", "passes-through")

	env := buildEnv([]string{"WORKERLINK_TEST_EXTRA"})

	var sawPath, sawExtra bool
	for _, kv := range env {
		if strings.HasPrefix(kv, "WORKERLINK_TEST_SECRET=") {
			t.Errorf("non-allow-listed variable leaked: %s", kv)
		}
		if strings.HasPrefix(kv, "PATH=") {
			sawPath = true
		}
		if kv == "WORKERLINK_TEST_EXTRA=passes-through" {
			sawExtra = true
		}
	}
	if !sawPath {
		t.Error("PATH should pass through the allow-list")
	}
	if !sawExtra {
		t.Error("configured extra variable should pass through")
	}
}

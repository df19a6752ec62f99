package process

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	goerrors "github.com/linebridge/workerlink/errors"
	"github.com/linebridge/workerlink/logger"
	"github.com/linebridge/workerlink/protocol"
	"github.com/linebridge/workerlink/util"
)

// Supervisor launches, monitors, and terminates the worker subprocess. It is
// the sole owner of the process handle; callers reach the worker only through
// the Stdin and Stdout accessors.
type Supervisor struct {
	config Config
	log    *logger.Logger

	mu             sync.Mutex
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	runtimeVersion protocol.RuntimeVersion

	alive    atomic.Bool
	stopping atomic.Bool
	done     chan struct{} // closed by the waiter when the process exits
}

// NewSupervisor creates a Supervisor for the given launch configuration.
func NewSupervisor(config Config, log *logger.Logger) *Supervisor {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	config.applyDefaults()
	return &Supervisor{
		config: config,
		log:    log.WithComponent("process"),
	}
}

// Start gates the runtime version, then spawns the worker with a minimized
// environment. On success the worker's stdio pipes are open and a background
// waiter tracks the process until it exits.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return goerrors.Internal(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return goerrors.Internal("worker is already running")
	}

	version, err := s.checkRuntime(ctx)
	if err != nil {
		return err
	}

	cmd := exec.Command(s.config.Binary, s.config.Args...) //nolint:gosec // launching the configured worker is the purpose of this package
	cmd.Dir = s.config.Dir
	cmd.Env = buildEnv(s.config.ExtraEnv)
	// Process group so termination reaches any children the worker spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return goerrors.ConnectionFailed("failed to open worker stdin").WithCause(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return goerrors.ConnectionFailed("failed to open worker stdout").WithCause(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return goerrors.ConnectionFailed("failed to open worker stderr").WithCause(err)
	}

	if err := cmd.Start(); err != nil {
		return goerrors.ConnectionFailed("failed to spawn worker").
			WithCause(err).
			WithDetail("binary", s.config.Binary)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.runtimeVersion = version
	s.done = make(chan struct{})
	s.stopping.Store(false)
	s.alive.Store(true)

	go s.drainStderr(stderr)
	go s.wait(cmd, s.done)

	s.log.Info("worker started", logger.Fields(
		logger.FieldWorkerPID, cmd.Process.Pid,
		logger.FieldRuntime, version.String(),
	))
	return nil
}

// checkRuntime probes the runtime binary's version and enforces the minimum
// major version. The worker is never spawned on a failed gate.
func (s *Supervisor) checkRuntime(ctx context.Context) (protocol.RuntimeVersion, error) {
	if s.config.MinRuntimeMajor <= 0 {
		return protocol.RuntimeVersion{}, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.config.VersionTimeout)
	defer cancel()

	probe := exec.CommandContext(probeCtx, s.config.Binary, s.config.VersionArgs...) //nolint:gosec
	probe.Env = buildEnv(s.config.ExtraEnv)
	out, err := probe.Output()
	if err != nil {
		return protocol.RuntimeVersion{}, goerrors.RuntimeIncompatible("version probe failed").
			WithCause(err).
			WithDetail("binary", s.config.Binary)
	}

	version, err := protocol.ParseRuntimeVersion(string(out))
	if err != nil {
		return protocol.RuntimeVersion{}, goerrors.RuntimeIncompatible("unparseable version output").
			WithCause(err).
			WithDetail("output", string(out))
	}

	if err := protocol.CheckRuntime(version, s.config.MinRuntimeMajor); err != nil {
		return protocol.RuntimeVersion{}, goerrors.RuntimeIncompatible(err.Error()).
			WithDetail("version", version.String()).
			WithDetail("min_major", s.config.MinRuntimeMajor)
	}

	return version, nil
}

// wait reaps the process and flips the alive flag. An exit without a prior
// Stop is logged as unexpected; the caller observes it through IsAlive.
func (s *Supervisor) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	s.alive.Store(false)
	close(done)

	if !s.stopping.Load() {
		s.log.Warn("worker exited unexpectedly", logger.Fields(
			logger.FieldWorkerPID, cmd.Process.Pid,
			"exit_code", cmd.ProcessState.ExitCode(),
			"error", errString(err),
		))
	}
}

// drainStderr keeps the worker's stderr pipe from filling and surfaces its
// diagnostics in our own log.
func (s *Supervisor) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4*1024), 256*1024)
	for scanner.Scan() {
		if line := util.SanitizeLine(scanner.Text()); line != "" {
			s.log.Debug("worker stderr", logger.Fields("line", line))
		}
	}
}

// Stop terminates the worker in two phases: SIGTERM to the process group, a
// bounded grace wait, then SIGKILL and a final wait. Safe to call when the
// worker already exited.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	stdin := s.stdin
	done := s.done
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	s.stopping.Store(true)

	if stdin != nil {
		_ = stdin.Close()
	}

	select {
	case <-done:
		return nil // already gone
	default:
	}

	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	grace := time.NewTimer(s.config.GracePeriod)
	defer grace.Stop()
	select {
	case <-done:
		s.log.Debug("worker exited on SIGTERM", logger.Fields(logger.FieldWorkerPID, pid))
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	s.log.Warn("worker ignored SIGTERM, escalating", logger.Fields(logger.FieldWorkerPID, pid))
	_ = syscall.Kill(-pid, syscall.SIGKILL)

	kill := time.NewTimer(s.config.KillWait)
	defer kill.Stop()
	select {
	case <-done:
		return nil
	case <-kill.C:
		return goerrors.Internal("worker did not exit after SIGKILL").
			WithDetail("pid", pid)
	}
}

// IsAlive reports whether the worker process is currently running. It flips
// to false as soon as the background waiter reaps an exited process.
func (s *Supervisor) IsAlive() bool {
	return s.alive.Load()
}

// PID returns the worker's process id, or zero when not running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stdin returns the worker's stdin writer, or nil when not running.
func (s *Supervisor) Stdin() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdin
}

// Stdout returns the worker's stdout reader, or nil when not running.
func (s *Supervisor) Stdout() io.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdout
}

// RuntimeVersion returns the version observed by the pre-spawn gate. Zero
// when the gate is disabled.
func (s *Supervisor) RuntimeVersion() protocol.RuntimeVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtimeVersion
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

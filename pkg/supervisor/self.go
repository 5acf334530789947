package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// stopGrace is how long a terminated child gets to exit before SIGKILL.
const stopGrace = 5 * time.Second

// SelfSupervisor owns the proxy process. Start writes the rendered
// configuration to disk and spawns the binary, or adopts an instance whose
// pidfile names a live PID. The child's output is streamed into the logger
// and its exit is published on Exited; the supervisor never restarts the
// process on its own.
type SelfSupervisor struct {
	config *config.ProcessConfig
	store  *caddyfile.Store
	loop   *healthLoop
	logger *slog.Logger

	metrics *metrics.Collector
	emitter *events.Emitter

	mu       sync.Mutex
	running  bool
	adopted  bool
	pid      int
	cmd      *exec.Cmd
	waitDone chan struct{}

	exitCh   chan int
	streamWG sync.WaitGroup
}

// NewSelf creates a supervisor that owns the proxy process.
func NewSelf(cfg *config.ProcessConfig, syncCfg *config.SyncConfig, api *admin.API, store *caddyfile.Store, machine *lifecycle.Machine, engine *syncer.Engine, logger *slog.Logger) (*SelfSupervisor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("process config cannot be nil")
	}
	if syncCfg == nil {
		return nil, fmt.Errorf("sync config cannot be nil")
	}
	if api == nil {
		return nil, fmt.Errorf("admin API cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("config store cannot be nil")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("sync engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "supervisor")

	return &SelfSupervisor{
		config: cfg,
		store:  store,
		loop:   newHealthLoop(api, machine, engine, syncCfg.AutoSync, cfg.HealthInterval, cfg.RecheckDelay, logger),
		logger: logger,
		exitCh: make(chan int, 1),
	}, nil
}

// SetTelemetry attaches optional metrics and event emission.
func (s *SelfSupervisor) SetTelemetry(c *metrics.Collector, em *events.Emitter) {
	s.metrics = c
	s.emitter = em
	s.loop.metrics = c
	s.loop.emitter = em
}

// Start spawns the proxy process, or adopts a running one left behind by a
// previous supervisor, then begins health polling.
func (s *SelfSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("supervisor is already running")
	}

	// Drop any unread exit notice from a previous generation.
	select {
	case <-s.exitCh:
	default:
	}

	if pid, ok := s.readPidFile(); ok && processAlive(pid) {
		s.adopted = true
		s.cmd = nil
		s.pid = pid
		s.waitDone = nil
		s.logger.Info("adopted running process", "pid", pid)
	} else if err := s.spawn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.running = true
	s.mu.Unlock()

	s.loop.start()
	return nil
}

// spawn writes the configuration file and starts the child. Callers hold
// s.mu.
func (s *SelfSupervisor) spawn() error {
	desired := s.store.Get()

	// The desired config's bin overrides the statically configured one.
	binPath := desired.Bin
	if binPath == "" {
		binPath = s.config.Bin
	}
	bin, err := exec.LookPath(binPath)
	if err != nil {
		return fmt.Errorf("proxy binary %q not found: %w", binPath, err)
	}

	if err := s.writeConfigFile(); err != nil {
		return err
	}

	// The child is deliberately not bound to a context; it outlives the
	// Start call.
	cmd := exec.Command(bin, "run",
		"--config", s.config.ConfigFile,
		"--adapter", "caddyfile",
		"--pidfile", s.config.PidFile,
	)
	if len(desired.Env) > 0 {
		cmd.Env = os.Environ()
		for _, ev := range desired.Env {
			cmd.Env = append(cmd.Env, ev.Key+"="+ev.Value)
		}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attaching stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting process: %w", err)
	}

	s.adopted = false
	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.waitDone = make(chan struct{})

	s.streamWG.Add(2)
	go s.streamOutput(stdout, "stdout")
	go s.streamOutput(stderr, "stderr")
	go s.waitExit(cmd, s.waitDone)

	// The child writes the pidfile itself; writing it here too covers the
	// window before it gets around to it.
	s.writePidFile(s.pid)

	if s.metrics != nil {
		s.metrics.RecordProcessStart()
	}
	s.emitter.Emit(events.ProcessStarted{PID: s.pid})
	s.logger.Info("process started",
		"pid", s.pid,
		"bin", bin,
		"config_file", s.config.ConfigFile,
	)
	return nil
}

// Stop terminates the owned process and removes the pidfile. An adopted
// process is stopped through its PID since there is no child handle.
func (s *SelfSupervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cmd := s.cmd
	adopted := s.adopted
	pid := s.pid
	done := s.waitDone
	s.mu.Unlock()

	s.loop.halt()

	var err error
	switch {
	case cmd != nil && cmd.Process != nil:
		err = s.terminateOwned(cmd, done)
	case adopted && pid > 0:
		err = s.terminateAdopted(pid)
	}

	if rmErr := os.Remove(s.config.PidFile); rmErr != nil && !os.IsNotExist(rmErr) {
		s.logger.Warn("cannot remove pidfile",
			"path", s.config.PidFile,
			"error", rmErr,
		)
	}
	if s.metrics != nil {
		s.metrics.UpdateProcessUp(false)
	}
	s.logger.Info("process supervision stopped", "pid", pid)
	return err
}

// Status returns the last observed process status.
func (s *SelfSupervisor) Status() Status {
	return s.loop.Status()
}

// Exited delivers the child's exit code. The owner watches this channel and
// decides what a child death means; the supervisor itself never respawns.
func (s *SelfSupervisor) Exited() <-chan int {
	return s.exitCh
}

// PID returns the supervised process ID, or zero before Start.
func (s *SelfSupervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// terminateOwned asks the child to exit and escalates to SIGKILL when the
// grace period runs out.
func (s *SelfSupervisor) terminateOwned(cmd *exec.Cmd, done chan struct{}) error {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		select {
		case <-done:
			// Already exited.
			return nil
		default:
		}
		return fmt.Errorf("signaling process: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(stopGrace):
	}

	s.logger.Warn("process did not exit in time, killing", "pid", cmd.Process.Pid)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing process: %w", err)
	}
	<-done
	return nil
}

// terminateAdopted stops a process adopted from a pidfile. With no child
// handle to wait on, liveness is polled after the signal.
func (s *SelfSupervisor) terminateAdopted(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone.
		return nil
	}

	if err := p.Terminate(); err != nil {
		if !processAlive(pid) {
			return nil
		}
		return fmt.Errorf("signaling process %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopGrace)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	s.logger.Warn("process did not exit in time, killing", "pid", pid)
	if err := p.Kill(); err != nil && processAlive(pid) {
		return fmt.Errorf("killing process %d: %w", pid, err)
	}
	return nil
}

// waitExit reaps the child and publishes its exit code. Output streams are
// drained first; Wait closes the pipes.
func (s *SelfSupervisor) waitExit(cmd *exec.Cmd, done chan struct{}) {
	s.streamWG.Wait()
	err := cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	expected := !s.running
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordProcessExit(code == 0)
	}
	s.emitter.Emit(events.ProcessExited{Code: code})
	if expected {
		s.logger.Info("process exited", "code", code)
	} else {
		s.logger.Error("process exited unexpectedly", "code", code)
	}

	close(done)

	select {
	case s.exitCh <- code:
	default:
	}
}

// streamOutput forwards one of the child's output streams into the logger
// line by line.
func (s *SelfSupervisor) streamOutput(r io.Reader, name string) {
	defer s.streamWG.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Info(scanner.Text(), "source", name)
	}
}

func (s *SelfSupervisor) writeConfigFile() error {
	if dir := filepath.Dir(s.config.ConfigFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(s.config.ConfigFile, s.store.Render(), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (s *SelfSupervisor) writePidFile(pid int) {
	if dir := filepath.Dir(s.config.PidFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn("cannot create pidfile directory", "error", err)
			return
		}
	}
	if err := os.WriteFile(s.config.PidFile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		s.logger.Warn("cannot write pidfile",
			"path", s.config.PidFile,
			"error", err,
		)
	}
}

func (s *SelfSupervisor) readPidFile() (int, bool) {
	data, err := os.ReadFile(s.config.PidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid names a live process.
func processAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// ExternalSupervisor observes a proxy process owned by something else, such
// as systemd or a container runtime. It never spawns the process; it polls
// the admin interface and, when configured, drives the process through
// operator-supplied shell commands.
type ExternalSupervisor struct {
	config *config.ProcessConfig
	loop   *healthLoop
	logger *slog.Logger

	metrics *metrics.Collector
	emitter *events.Emitter

	mu       sync.Mutex
	watching bool
}

// NewExternal creates a supervisor for an externally managed process.
func NewExternal(cfg *config.ProcessConfig, syncCfg *config.SyncConfig, api *admin.API, machine *lifecycle.Machine, engine *syncer.Engine, logger *slog.Logger) (*ExternalSupervisor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("process config cannot be nil")
	}
	if syncCfg == nil {
		return nil, fmt.Errorf("sync config cannot be nil")
	}
	if api == nil {
		return nil, fmt.Errorf("admin API cannot be nil")
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

	return &ExternalSupervisor{
		config: cfg,
		loop:   newHealthLoop(api, machine, engine, syncCfg.AutoSync, cfg.HealthInterval, cfg.RecheckDelay, logger),
		logger: logger,
	}, nil
}

// SetTelemetry attaches optional metrics and event emission.
func (s *ExternalSupervisor) SetTelemetry(c *metrics.Collector, em *events.Emitter) {
	s.metrics = c
	s.emitter = em
	s.loop.metrics = c
	s.loop.emitter = em
}

// Start begins polling the process's admin interface.
func (s *ExternalSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		return fmt.Errorf("supervisor is already running")
	}
	s.watching = true

	s.logger.Info("watching external process",
		"health_interval", s.loop.interval.String(),
	)
	s.loop.start()
	return nil
}

// Stop ends polling. The process itself is left alone.
func (s *ExternalSupervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watching = false
	s.mu.Unlock()

	s.loop.halt()
	s.logger.Info("stopped watching external process")
	return nil
}

// Status returns the last observed process status.
func (s *ExternalSupervisor) Status() Status {
	return s.loop.Status()
}

// StartProcess runs the configured start command, then schedules an early
// health probe so the new process is noticed before the next interval.
func (s *ExternalSupervisor) StartProcess(ctx context.Context) error {
	if _, err := s.RunCommand(ctx, "start"); err != nil {
		return err
	}
	s.loop.kickAfter(s.loop.recheck)
	return nil
}

// StopProcess runs the configured stop command.
func (s *ExternalSupervisor) StopProcess(ctx context.Context) error {
	_, err := s.RunCommand(ctx, "stop")
	return err
}

// RestartProcess runs the configured restart command, then schedules an
// early health probe.
func (s *ExternalSupervisor) RestartProcess(ctx context.Context) error {
	if _, err := s.RunCommand(ctx, "restart"); err != nil {
		return err
	}
	s.loop.kickAfter(s.loop.recheck)
	return nil
}

// ProcessStatus runs the configured status command and returns its output.
func (s *ExternalSupervisor) ProcessStatus(ctx context.Context) (string, error) {
	return s.RunCommand(ctx, "status")
}

// RunCommand shell-executes the configured command for a lifecycle action
// and returns its combined output. Actions with no configured command fail
// with CommandNotConfiguredError; a non-zero exit is reported as
// CommandFailedError carrying the exit code and output.
func (s *ExternalSupervisor) RunCommand(ctx context.Context, action string) (string, error) {
	command := s.commandFor(action)
	if command == "" {
		s.recordCommand(action, "not_configured")
		return "", &CommandNotConfiguredError{Action: action}
	}

	s.logger.Info("running process command",
		"action", action,
		"command", command,
	)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	raw, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(raw))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.recordCommand(action, "error")
			s.emitter.Emit(events.CommandRun{Action: action, ExitCode: exitErr.ExitCode()})
			s.logger.Error("process command failed",
				"action", action,
				"exit_code", exitErr.ExitCode(),
				"output", output,
			)
			return "", &CommandFailedError{Action: action, Code: exitErr.ExitCode(), Output: output}
		}
		s.recordCommand(action, "error")
		return "", fmt.Errorf("running %s command: %w", action, err)
	}

	s.recordCommand(action, "success")
	s.emitter.Emit(events.CommandRun{Action: action, ExitCode: 0})
	return output, nil
}

func (s *ExternalSupervisor) commandFor(action string) string {
	switch action {
	case "start":
		return s.config.Commands.Start
	case "stop":
		return s.config.Commands.Stop
	case "restart":
		return s.config.Commands.Restart
	case "status":
		return s.config.Commands.Status
	default:
		return ""
	}
}

func (s *ExternalSupervisor) recordCommand(action, result string) {
	if s.metrics != nil {
		s.metrics.RecordCommand(action, result)
	}
}

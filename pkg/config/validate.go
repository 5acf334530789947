package config

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/ganymede/pkg/wire"
)

// FieldError is a validation failure tied to one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "admin.endpoint".
	Field string

	// Message is a human-readable description of the failure.
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in one pass. It
// implements error so a single check covers the whole configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "configuration validation failed"
	case 1:
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// fieldErrors accumulates FieldError values while a section is walked.
type fieldErrors []FieldError

func (e *fieldErrors) add(field, msg string) {
	*e = append(*e, FieldError{Field: field, Message: msg})
}

func (e *fieldErrors) addf(field, format string, args ...any) {
	e.add(field, fmt.Sprintf(format, args...))
}

// Validate checks the whole configuration and returns a ValidationError
// carrying every rule violation found, or nil when the configuration is
// usable.
func Validate(cfg *Config) error {
	var errs []FieldError
	errs = append(errs, validateAdmin(&cfg.Admin)...)
	errs = append(errs, validateProcess(&cfg.Process)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs fieldErrors

	if cfg.Endpoint == "" {
		errs.add("admin.endpoint", "admin endpoint is required")
	} else if _, err := wire.ParseEndpoint(cfg.Endpoint); err != nil {
		errs.addf("admin.endpoint", "invalid admin endpoint: %v", err)
	}

	if cfg.Timeout < 0 {
		errs.add("admin.timeout", "timeout must be positive")
	}
	if cfg.Timeout > 5*time.Minute {
		errs.add("admin.timeout", "timeout exceeds reasonable limit (5m)")
	}

	return errs
}

func validateProcess(cfg *ProcessConfig) []FieldError {
	var errs fieldErrors

	switch cfg.Mode {
	case "":
		errs.add("process.mode", "process mode is required")
	case "self", "external":
	default:
		errs.addf("process.mode", "invalid process mode %q: must be 'self' or 'external'", cfg.Mode)
	}

	// Self mode spawns the process, so it needs everything exec needs.
	if cfg.Mode == "self" {
		if cfg.Bin == "" {
			errs.add("process.bin", "binary path is required in self mode")
		}
		if cfg.ConfigFile == "" {
			errs.add("process.config_file", "config file path is required in self mode")
		}
		if cfg.PidFile == "" {
			errs.add("process.pid_file", "pid file path is required in self mode")
		}
	}

	if cfg.HealthInterval < 0 {
		errs.add("process.health_interval", "health interval must be positive")
	}
	if cfg.HealthInterval > 0 && cfg.HealthInterval < time.Second {
		errs.add("process.health_interval", "health interval below reasonable limit (1s)")
	}
	if cfg.RecheckDelay < 0 {
		errs.add("process.recheck_delay", "recheck delay must be positive")
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs fieldErrors

	if cfg.SnapshotPath == "" {
		errs.add("storage.snapshot_path", "snapshot path is required")
	}
	if cfg.BackupPath != "" && cfg.BackupPath == cfg.SnapshotPath {
		errs.add("storage.backup_path", "backup path must differ from snapshot path")
	}

	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			errs.add("storage.history.path", "history path is required when history is enabled")
		}
		if cfg.History.Keep < 1 {
			errs.add("storage.history.keep", "keep must be at least 1")
		}
		if cfg.History.BusyTimeout < 0 {
			errs.add("storage.history.busy_timeout", "busy timeout must be positive")
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs fieldErrors

	switch cfg.Logging.Level {
	case "":
		errs.add("telemetry.logging.level", "logging level is required")
	case "debug", "info", "warn", "error":
	default:
		errs.addf("telemetry.logging.level", "invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "":
		errs.add("telemetry.logging.format", "logging format is required")
	case "json", "text":
	default:
		errs.addf("telemetry.logging.format", "invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs.add("telemetry.metrics.listen_address", "listen address is required when metrics are enabled")
		}
		if cfg.Metrics.Path == "" {
			errs.add("telemetry.metrics.path", "metrics path is required when metrics are enabled")
		} else if cfg.Metrics.Path[0] != '/' {
			errs.add("telemetry.metrics.path", "metrics path must start with /")
		}
	}

	if cfg.Events.Enabled {
		switch cfg.Events.Sink {
		case "log", "sqlite":
		default:
			errs.addf("telemetry.events.sink", "invalid events sink %q: must be 'log' or 'sqlite'", cfg.Events.Sink)
		}
		if cfg.Events.Sink == "sqlite" && cfg.Events.Path == "" {
			errs.add("telemetry.events.path", "events path is required for the sqlite sink")
		}
	}

	if cfg.Health.Enabled {
		if cfg.Health.ListenAddress == "" {
			errs.add("telemetry.health.listen_address", "listen address is required when health checks are enabled")
		}
		probePaths := []struct {
			field, name, value string
		}{
			{"telemetry.health.liveness_path", "liveness path", cfg.Health.LivenessPath},
			{"telemetry.health.readiness_path", "readiness path", cfg.Health.ReadinessPath},
			{"telemetry.health.version_path", "version path", cfg.Health.VersionPath},
		}
		for _, p := range probePaths {
			switch {
			case p.value == "":
				errs.addf(p.field, "%s is required when health checks are enabled", p.name)
			case p.value[0] != '/':
				errs.addf(p.field, "%s must start with /", p.name)
			}
		}
		if cfg.Health.CheckTimeout < 0 {
			errs.add("telemetry.health.check_timeout", "check timeout must be positive")
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs.add("telemetry.health.check_timeout", "check timeout exceeds reasonable limit (60s)")
		}
	}

	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs fieldErrors

	if cfg.Enabled && cfg.Path == "" {
		errs.add("watch.path", "watch path is required when watching is enabled")
	}
	if cfg.Debounce < 0 {
		errs.add("watch.debounce", "debounce must be positive")
	}

	return errs
}

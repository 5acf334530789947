package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Decode into a pre-seeded struct so booleans that default to true
	// survive an absent key but honor an explicit false.
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention GANYMEDE_SECTION_FIELD (e.g.
// GANYMEDE_ADMIN_ENDPOINT). Environment variables always take precedence
// over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Environment override helpers. Overrides are best effort: a value that
// does not parse leaves the file-configured value in place.

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// applyEnvOverrides maps GANYMEDE_SECTION_FIELD variables onto the
// configuration.
func applyEnvOverrides(cfg *Config) {
	envString("GANYMEDE_ADMIN_ENDPOINT", &cfg.Admin.Endpoint)
	envString("GANYMEDE_ADMIN_ORIGIN_HOST", &cfg.Admin.OriginHost)
	envDuration("GANYMEDE_ADMIN_TIMEOUT", &cfg.Admin.Timeout)

	envString("GANYMEDE_PROCESS_MODE", &cfg.Process.Mode)
	envString("GANYMEDE_PROCESS_BIN", &cfg.Process.Bin)
	envString("GANYMEDE_PROCESS_CONFIG_FILE", &cfg.Process.ConfigFile)
	envString("GANYMEDE_PROCESS_PID_FILE", &cfg.Process.PidFile)
	envDuration("GANYMEDE_PROCESS_HEALTH_INTERVAL", &cfg.Process.HealthInterval)

	envBool("GANYMEDE_SYNC_BACKUP", &cfg.Sync.Backup)
	envBool("GANYMEDE_SYNC_VALIDATE", &cfg.Sync.Validate)
	envBool("GANYMEDE_SYNC_AUTO_SYNC", &cfg.Sync.AutoSync)
	envString("GANYMEDE_SYNC_DRIFT_SCHEDULE", &cfg.Sync.DriftSchedule)

	envString("GANYMEDE_STORAGE_SNAPSHOT_PATH", &cfg.Storage.SnapshotPath)
	envString("GANYMEDE_STORAGE_BACKUP_PATH", &cfg.Storage.BackupPath)
	envString("GANYMEDE_STORAGE_HISTORY_PATH", &cfg.Storage.History.Path)
	envInt("GANYMEDE_STORAGE_HISTORY_KEEP", &cfg.Storage.History.Keep)

	envString("GANYMEDE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("GANYMEDE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("GANYMEDE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("GANYMEDE_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("GANYMEDE_TELEMETRY_EVENTS_SINK", &cfg.Telemetry.Events.Sink)
	envString("GANYMEDE_TELEMETRY_HEALTH_LISTEN_ADDRESS", &cfg.Telemetry.Health.ListenAddress)

	envBool("GANYMEDE_WATCH_ENABLED", &cfg.Watch.Enabled)
	envString("GANYMEDE_WATCH_PATH", &cfg.Watch.Path)
}

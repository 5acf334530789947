package config

import "time"

// Default values for configuration fields.
const (
	// Admin defaults
	DefaultAdminEndpoint = "http://localhost:2019"
	DefaultAdminTimeout  = 5 * time.Second

	// Process defaults
	DefaultProcessMode    = "external"
	DefaultProcessBin     = "caddy"
	DefaultConfigFile     = "data/Caddyfile"
	DefaultPidFile        = "data/caddy.pid"
	DefaultHealthInterval = 30 * time.Second
	DefaultRecheckDelay   = 1 * time.Second

	// Sync defaults
	DefaultSyncBackup   = true
	DefaultSyncValidate = true
	DefaultAutoSync     = true

	// Storage defaults
	DefaultSnapshotPath         = "data/autosave.json"
	DefaultBackupPath           = "data/autosave.backup.json"
	DefaultHistoryEnabled       = true
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryKeep          = 50
	DefaultHistoryPruneSchedule = "0 3 * * *"
	DefaultHistoryWALMode       = true
	DefaultHistoryBusyTimeout   = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultRedactSecrets       = true
	DefaultMetricsEnabled      = true
	DefaultMetricsAddress      = "127.0.0.1:9190"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "mercator"
	DefaultMetricsSubsystem    = "ganymede"
	DefaultEventsEnabled       = true
	DefaultEventsSink          = "log"
	DefaultEventsPath          = "data/events.db"
	DefaultHealthEnabled       = true
	DefaultHealthAddress       = "127.0.0.1:9190"
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Fields whose zero value is meaningful (booleans that default to
// true, storage.backup_path where "" disables rotation) cannot be
// distinguished from an explicit zero after YAML decoding, so
// ApplyDefaults leaves them alone; NewDefault seeds them before
// decoding instead.
func ApplyDefaults(cfg *Config) {
	// Admin defaults
	if cfg.Admin.Endpoint == "" {
		cfg.Admin.Endpoint = DefaultAdminEndpoint
	}
	if cfg.Admin.Timeout == 0 {
		cfg.Admin.Timeout = DefaultAdminTimeout
	}

	// Process defaults
	if cfg.Process.Mode == "" {
		cfg.Process.Mode = DefaultProcessMode
	}
	if cfg.Process.Bin == "" {
		cfg.Process.Bin = DefaultProcessBin
	}
	if cfg.Process.ConfigFile == "" {
		cfg.Process.ConfigFile = DefaultConfigFile
	}
	if cfg.Process.PidFile == "" {
		cfg.Process.PidFile = DefaultPidFile
	}
	if cfg.Process.HealthInterval == 0 {
		cfg.Process.HealthInterval = DefaultHealthInterval
	}
	if cfg.Process.RecheckDelay == 0 {
		cfg.Process.RecheckDelay = DefaultRecheckDelay
	}

	// Storage defaults
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = DefaultSnapshotPath
	}
	if cfg.Storage.History.Path == "" {
		cfg.Storage.History.Path = DefaultHistoryPath
	}
	if cfg.Storage.History.Keep == 0 {
		cfg.Storage.History.Keep = DefaultHistoryKeep
	}
	if cfg.Storage.History.BusyTimeout == 0 {
		cfg.Storage.History.BusyTimeout = DefaultHistoryBusyTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Events.Sink == "" {
		cfg.Telemetry.Events.Sink = DefaultEventsSink
	}
	if cfg.Telemetry.Events.Path == "" {
		cfg.Telemetry.Events.Path = DefaultEventsPath
	}
	if cfg.Telemetry.Health.ListenAddress == "" {
		cfg.Telemetry.Health.ListenAddress = DefaultHealthAddress
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}

// NewDefault returns a Config with every default applied, including the
// booleans that default to true. Loading YAML into this struct lets an
// explicit "enabled: false" in the file survive.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Sync.Backup = DefaultSyncBackup
	cfg.Sync.Validate = DefaultSyncValidate
	cfg.Sync.AutoSync = DefaultAutoSync
	cfg.Storage.BackupPath = DefaultBackupPath
	cfg.Storage.History.Enabled = DefaultHistoryEnabled
	cfg.Storage.History.PruneSchedule = DefaultHistoryPruneSchedule
	cfg.Storage.History.WALMode = DefaultHistoryWALMode
	cfg.Telemetry.Logging.RedactSecrets = DefaultRedactSecrets
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Events.Enabled = DefaultEventsEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

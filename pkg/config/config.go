package config

import "time"

// Config is the root configuration structure for Mercator Ganymede.
// It contains all settings for the admin connection, the managed
// process, synchronization behavior, storage, and telemetry.
type Config struct {
	// Admin contains settings for the proxy admin API connection.
	Admin AdminConfig `yaml:"admin"`

	// Process contains settings for the managed proxy process.
	Process ProcessConfig `yaml:"process"`

	// Sync contains synchronization behavior settings.
	Sync SyncConfig `yaml:"sync"`

	// Storage contains snapshot and version history settings.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains observability settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch contains source file watching settings.
	Watch WatchConfig `yaml:"watch"`
}

// AdminConfig contains settings for the proxy admin API connection.
type AdminConfig struct {
	// Endpoint is the admin API endpoint URL.
	// Supports "http://host:port" and "unix:///path/to/socket".
	// Default: "http://localhost:2019"
	Endpoint string `yaml:"endpoint"`

	// OriginHost overrides the Host header sent with admin requests.
	// The admin API enforces origin checks on this value.
	// Default: "" (derived from the endpoint)
	OriginHost string `yaml:"origin_host"`

	// Timeout is the per-request timeout for admin API calls.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// ProcessConfig contains settings for the managed proxy process.
type ProcessConfig struct {
	// Mode selects how the proxy process is managed.
	// Options: "self" (spawned and owned), "external" (observed only)
	// Default: "external"
	Mode string `yaml:"mode"`

	// Bin is the path to the proxy binary. Used to spawn the process
	// in self mode and for offline config validation.
	// Default: "caddy"
	Bin string `yaml:"bin"`

	// ConfigFile is where the rendered Caddyfile is written before the
	// process is spawned in self mode.
	// Default: "data/Caddyfile"
	ConfigFile string `yaml:"config_file"`

	// PidFile records the PID of a self-managed process so that a
	// restart can adopt an already-running instance.
	// Default: "data/caddy.pid"
	PidFile string `yaml:"pid_file"`

	// HealthInterval is the polling interval for external process
	// health checks.
	// Default: 30s
	HealthInterval time.Duration `yaml:"health_interval"`

	// RecheckDelay is how long to wait before re-checking health after
	// a start or restart command.
	// Default: 1s
	RecheckDelay time.Duration `yaml:"recheck_delay"`

	// Commands maps lifecycle actions to shell commands for external
	// mode. Unset commands make the corresponding action unavailable.
	Commands CommandsConfig `yaml:"commands"`
}

// CommandsConfig maps process lifecycle actions to shell commands.
// Each command is run through "sh -c".
type CommandsConfig struct {
	// Start launches the external proxy process.
	// Example: "systemctl start caddy"
	Start string `yaml:"start"`

	// Stop terminates the external proxy process.
	// Example: "systemctl stop caddy"
	Stop string `yaml:"stop"`

	// Restart restarts the external proxy process.
	// Example: "systemctl restart caddy"
	Restart string `yaml:"restart"`

	// Status reports on the external proxy process.
	// Example: "systemctl status caddy"
	Status string `yaml:"status"`
}

// SyncConfig contains synchronization behavior settings.
type SyncConfig struct {
	// Backup fetches the runtime config before each sync; a successful
	// sync commits it as the rollback target.
	// Default: true
	Backup bool `yaml:"backup"`

	// Validate adapts the desired config through the admin API before
	// loading it, rejecting configs the proxy would refuse.
	// Default: true
	Validate bool `yaml:"validate"`

	// AutoSync pushes the desired config once the managed process
	// first becomes reachable.
	// Default: true
	AutoSync bool `yaml:"auto_sync"`

	// DriftSchedule is a cron expression for periodic drift audits.
	// Empty disables scheduled audits.
	// Example: "*/15 * * * *"
	// Default: ""
	DriftSchedule string `yaml:"drift_schedule"`
}

// StorageConfig contains snapshot and version history settings.
type StorageConfig struct {
	// SnapshotPath is where the desired config is autosaved as JSON.
	// Default: "data/autosave.json"
	SnapshotPath string `yaml:"snapshot_path"`

	// BackupPath receives the previous snapshot on each save.
	// Empty disables backup rotation.
	// Default: "data/autosave.backup.json"
	BackupPath string `yaml:"backup_path"`

	// History contains version history settings.
	History HistoryConfig `yaml:"history"`
}

// HistoryConfig contains version history settings.
type HistoryConfig struct {
	// Enabled controls whether config versions are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for version history.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Keep is how many versions Prune retains.
	// Default: 50
	Keep int `yaml:"keep"`

	// PruneSchedule is a cron expression for periodic pruning.
	// Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// WALMode enables SQLite write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Events contains lifecycle event sink configuration.
	Events EventsConfig `yaml:"events"`

	// Health contains health check endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials and tokens in log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the metrics HTTP listener.
	// Default: "127.0.0.1:9190"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "ganymede"
	Subsystem string `yaml:"subsystem"`
}

// EventsConfig contains lifecycle event sink configuration.
type EventsConfig struct {
	// Enabled controls whether lifecycle events are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Sink selects where events are written.
	// Options: "log", "sqlite"
	// Default: "log"
	Sink string `yaml:"sink"`

	// Path is the SQLite database file for the sqlite sink.
	// Default: "data/events.db"
	Path string `yaml:"path"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the health HTTP listener.
	// When it matches the metrics listener the two share a server.
	// Default: "127.0.0.1:9190"
	ListenAddress string `yaml:"listen_address"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// WatchConfig contains source file watching settings.
type WatchConfig struct {
	// Enabled controls whether a Caddyfile source is watched for
	// changes and re-synced automatically.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the Caddyfile source to watch.
	Path string `yaml:"path"`

	// Debounce coalesces rapid write events into one reload.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`
}

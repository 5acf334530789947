// Package config defines and loads the control plane configuration.
//
// Everything the process needs, the admin endpoint, the process
// supervision mode, storage paths, and the observability surfaces, comes
// from one YAML file plus optional environment overrides. The loaded
// struct is plain data with no behavior attached.
//
// # Loading
//
// Two entry points cover the common cases:
//
//	cfg, err := config.LoadConfig("ganymede.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("ganymede.yaml")
//
// The first reads the file as-is. The second additionally consults the
// process environment, which is how containerized deployments inject
// the admin endpoint without rewriting the file.
//
// # Environment Overrides
//
// Variables are named GANYMEDE_SECTION_FIELD and win over the file:
//
//   - GANYMEDE_ADMIN_ENDPOINT overrides admin.endpoint
//   - GANYMEDE_PROCESS_MODE overrides process.mode
//   - GANYMEDE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Precedence
//
// Defaults are applied first, then the YAML file, then environment
// overrides, and finally validation rejects the merged result if it is
// inconsistent. A field absent everywhere keeps its default.
//
// # Injection
//
// There is no package-level configuration state. The loaded *Config is
// constructed once at startup and passed explicitly to each component
// that needs it. Components must not mutate the Config after startup.
//
// # Validation
//
// Loading validates before returning. The rules cover required fields
// (admin endpoint, watch path when enabled), closed enums (process mode
// is "self" or "external"), formats (the admin endpoint must parse as
// http:// or unix://), and ranges (timeouts must be positive).
//
// Validation errors carry field paths:
//
//	configuration validation failed with 2 errors:
//	  - admin.endpoint: admin endpoint is required
//	  - process.mode: invalid process mode "attached": must be 'self' or 'external'
//
// # Example Configuration
//
// A minimal file for supervising an externally managed Caddy:
//
//	admin:
//	  endpoint: "http://localhost:2019"
//
//	process:
//	  mode: "external"
//	  commands:
//	    restart: "systemctl restart caddy"
//
//	storage:
//	  snapshot_path: "data/autosave.json"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// A loaded Config is treated as immutable and is safe for concurrent
// reads from any goroutine.
package config

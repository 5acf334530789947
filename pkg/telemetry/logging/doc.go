// Package logging provides structured logging for Ganymede.
//
// # Overview
//
// The package wraps log/slog with level and format selection, secret
// redaction, and the component-logger convention used across the codebase:
// every subsystem derives its logger as slog.Default().With("component", ...),
// so installing the configured logger as the slog default wires the whole
// process at once.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Install()
//
//	logger.Info("sync complete", "sites", 3)
//
// # Redaction
//
// With RedactSecrets enabled, attribute values whose keys look secret
// (password, token, api_key, secret, credential) are masked, as is bearer
// and basic-auth material embedded inside values. Environment pairs pushed
// to the managed process routinely carry credentials, so the sync and
// supervisor paths rely on this.
package logging

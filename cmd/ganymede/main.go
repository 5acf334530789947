// Ganymede keeps a Caddy reverse proxy in sync with a declared Caddyfile.
//
// It owns the desired configuration as structured Caddyfile text, pushes it
// through Caddy's admin API, and supervises the proxy process:
//   - Caddyfile model with global options, snippets, and site blocks
//   - Validated sync via POST /adapt and POST /load on the admin endpoint
//   - Drift detection between desired and running configuration
//   - Rollback to the last known good configuration
//   - Self-managed or externally managed proxy process supervision
//
// Usage:
//
//	# Start the control plane with the default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/ganymede.yaml
//
//	# Push a Caddyfile to the running proxy once
//	ganymede sync --file Caddyfile
//
//	# Compare the desired configuration against what the proxy runs
//	ganymede drift
//
//	# Restore the last known good configuration
//	ganymede rollback
//
//	# Validate a Caddyfile without touching the running proxy
//	ganymede validate --file Caddyfile
//
//	# Show version information
//	ganymede version
//
// For complete documentation, see: https://github.com/mercator-hq/ganymede
package main

func main() {
	Execute()
}

// Package caddyfile models the desired configuration as structured text.
//
// # Overview
//
// The package holds the canonical in-memory form of a Caddyfile: one global
// options block, an ordered list of named fragments (snippets), an ordered
// list of site blocks, plus the managed binary path and environment pairs
// that never appear in the text itself. Parse splits raw Caddyfile text into
// that structure by tracking brace depth character by character; Serialize
// renders the structure back to canonical text. The two are inverses for any
// configuration with well-formed fragment names and site addresses.
//
// Parsing is deliberately lenient: text that fits no block shape is never
// dropped, it is synthesized into an auto-named fragment so a later
// Serialize reproduces it. Structural validity of the combined text is not
// checked here at all; that is the adapter's job at sync time.
//
// # Usage
//
//	cfg := caddyfile.Parse([]byte(`
//	example.com {
//	  respond "hello" 200
//	}
//	`))
//
//	cfg.Global = "admin localhost:2019"
//	text := caddyfile.Serialize(cfg)
//
// # Store
//
// Store owns a Config for concurrent use. All mutation goes through its
// methods; reads return deep copies so no caller ever observes a partial
// write.
package caddyfile

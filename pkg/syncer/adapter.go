package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"mercator-hq/ganymede/pkg/admin"
)

// Adapter converts configuration text into the JSON document form the
// process loads. Adapting implies validating: an adapter returns an error
// for text the process would reject.
type Adapter interface {
	Adapt(ctx context.Context, text []byte) (json.RawMessage, error)
}

// AdminAdapter adapts through the running process's admin interface. This is
// the engine's default: the process that will load the configuration is also
// the one that judges it.
type AdminAdapter struct {
	api *admin.API
}

// NewAdminAdapter creates an adapter backed by the admin API.
func NewAdminAdapter(api *admin.API) *AdminAdapter {
	return &AdminAdapter{api: api}
}

// Adapt implements Adapter.
func (a *AdminAdapter) Adapt(ctx context.Context, text []byte) (json.RawMessage, error) {
	return a.api.Adapt(ctx, text)
}

// BinAdapter adapts by running the proxy binary's adapt subcommand. It needs
// no running process, which makes it the validation path for offline checks
// when the admin socket is down.
type BinAdapter struct {
	bin    string
	logger *slog.Logger
}

// NewBinAdapter creates an adapter that shells out to the given binary.
func NewBinAdapter(bin string, logger *slog.Logger) *BinAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BinAdapter{
		bin:    bin,
		logger: logger.With("component", "adapter"),
	}
}

// Adapt implements Adapter. The text is written to a temporary file and fed
// to "<bin> adapt --config <file> --adapter caddyfile"; stdout carries the
// adapted document, stderr the rejection reason on failure.
func (b *BinAdapter) Adapt(ctx context.Context, text []byte) (json.RawMessage, error) {
	if b.bin == "" {
		return nil, fmt.Errorf("adapter binary not configured")
	}
	bin, err := exec.LookPath(b.bin)
	if err != nil {
		return nil, fmt.Errorf("adapter binary %q not found: %w", b.bin, err)
	}

	tmp, err := os.CreateTemp("", "ganymede-adapt-*.caddyfile")
	if err != nil {
		return nil, fmt.Errorf("creating temporary config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(text); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing temporary config file: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "adapt", "--config", tmp.Name(), "--adapter", "caddyfile")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("running offline adapt", "bin", bin, "bytes", len(text))
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("adapt command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("adapt command failed: %w", err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if !json.Valid(out) {
		return nil, fmt.Errorf("adapt command produced invalid output")
	}
	return json.RawMessage(out), nil
}

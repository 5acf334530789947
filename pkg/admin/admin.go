package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/ganymede/pkg/wire"
)

// API exposes the admin endpoints of the managed process as typed operations.
type API struct {
	client *wire.Client
	logger *slog.Logger
}

// New returns an API over the given wire client.
func New(client *wire.Client) *API {
	return &API{
		client: client,
		logger: slog.Default().With("component", "admin"),
	}
}

// Endpoint returns the endpoint the API talks to.
func (a *API) Endpoint() wire.Endpoint {
	return a.client.Endpoint()
}

// configPath joins a caller-supplied sub-path onto /config/. An empty path
// addresses the whole tree.
func configPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	return "/config/" + path
}

// do runs one request and maps non-2xx responses to *HTTPError.
func (a *API) do(ctx context.Context, method, path string, headers []wire.Header, body []byte) (*wire.Response, error) {
	resp, err := a.client.Do(ctx, method, path, headers, body)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, &HTTPError{Status: resp.Status, Body: resp.Body}
	}
	return resp, nil
}

// GetConfig fetches the runtime configuration at the given sub-path
// ("" for the whole tree) and returns the raw JSON document.
func (a *API) GetConfig(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := a.do(ctx, "GET", configPath(path), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// PostConfig sets or appends a value at the given configuration sub-path.
func (a *API) PostConfig(ctx context.Context, path string, body []byte) error {
	_, err := a.do(ctx, "POST", configPath(path), nil, body)
	return err
}

// PutConfig creates a new value at the given configuration sub-path,
// inserting rather than replacing in array contexts.
func (a *API) PutConfig(ctx context.Context, path string, body []byte) error {
	_, err := a.do(ctx, "PUT", configPath(path), nil, body)
	return err
}

// PatchConfig replaces an existing value at the given configuration sub-path.
func (a *API) PatchConfig(ctx context.Context, path string, body []byte) error {
	_, err := a.do(ctx, "PATCH", configPath(path), nil, body)
	return err
}

// DeleteConfig removes the value at the given configuration sub-path.
func (a *API) DeleteConfig(ctx context.Context, path string) error {
	_, err := a.do(ctx, "DELETE", configPath(path), nil, nil)
	return err
}

// Load merges doc over the current runtime configuration tree and loads the
// merged document. When the process has no current configuration (or it
// cannot be fetched) doc is loaded as-is; a load against an unreachable
// process fails on the POST either way.
func (a *API) Load(ctx context.Context, doc map[string]any) error {
	merged := doc
	if current, err := a.fetchConfigMap(ctx); err != nil {
		a.logger.Debug("could not fetch current config before load, loading document as-is",
			"error", err)
	} else if len(current) > 0 {
		merged = mergeConfig(current, doc)
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding config for load: %w", err)
	}
	return a.LoadRaw(ctx, body)
}

// LoadRaw posts a complete JSON configuration document verbatim to /load,
// replacing the running configuration wholesale.
func (a *API) LoadRaw(ctx context.Context, raw []byte) error {
	_, err := a.do(ctx, "POST", "/load", nil, raw)
	return err
}

// adaptEnvelope is the /adapt response shape: the adapted document plus any
// non-fatal adapter warnings.
type adaptEnvelope struct {
	Result   json.RawMessage `json:"result"`
	Warnings []AdaptWarning  `json:"warnings"`
}

// AdaptWarning is a non-fatal note the adapter attaches to otherwise valid
// configuration text.
type AdaptWarning struct {
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Directive string `json:"directive,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Adapt converts configuration text to its JSON form via the process's
// adapter and returns the resulting document. The process validates the text
// as part of adapting, so this doubles as the validation gate before a sync.
// Warnings from the adapter are logged, not returned; a server that responds
// with a bare document instead of the result envelope is accepted as-is.
func (a *API) Adapt(ctx context.Context, text []byte) (json.RawMessage, error) {
	headers := []wire.Header{{Name: "Content-Type", Value: "text/caddyfile"}}
	resp, err := a.do(ctx, "POST", "/adapt", headers, text)
	if err != nil {
		return nil, err
	}

	var env adaptEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil || len(env.Result) == 0 {
		return json.RawMessage(resp.Body), nil
	}
	for _, w := range env.Warnings {
		a.logger.Warn("configuration adapter warning",
			"file", w.File,
			"line", w.Line,
			"directive", w.Directive,
			"message", w.Message)
	}
	return env.Result, nil
}

// Stop asks the process to shut down gracefully.
func (a *API) Stop(ctx context.Context) error {
	_, err := a.do(ctx, "POST", "/stop", nil, nil)
	return err
}

// ServerInfo fetches the admin root document, which identifies the server.
func (a *API) ServerInfo(ctx context.Context) (json.RawMessage, error) {
	resp, err := a.do(ctx, "GET", "/", nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// fetchConfigMap fetches the whole runtime configuration as a map. A JSON
// null (a process with no configuration loaded) decodes to an empty map.
func (a *API) fetchConfigMap(ctx context.Context) (map[string]any, error) {
	raw, err := a.GetConfig(ctx, "")
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding current config: %w", err)
	}
	return m, nil
}

// mergeConfig deep-merges src over dst. Nested objects merge key by key;
// any other value in src replaces the dst value outright.
func mergeConfig(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = mergeConfig(dv, sv)
			continue
		}
		out[k] = v
	}
	return out
}

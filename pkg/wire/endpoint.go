package wire

import (
	"net"
	"net/url"
	"strconv"
)

const (
	// DefaultAdminPort is the TCP port used when an http:// endpoint omits one.
	DefaultAdminPort = 2019

	// DefaultUnixHost is the Host header value for Unix socket endpoints.
	// The admin interface requires a Host header even when no TCP host exists;
	// override it with WithHost when origin enforcement is configured.
	DefaultUnixHost = "localhost"
)

// Endpoint is a parsed admin endpoint.
type Endpoint struct {
	// Network is the dial network: "unix" or "tcp".
	Network string

	// Address is the socket path (unix) or host:port (tcp).
	Address string

	// Host is the value sent in the Host header.
	Host string
}

// String returns the endpoint in dialable form, for logs and error messages.
func (e Endpoint) String() string {
	if e.Network == "unix" {
		return "unix://" + e.Address
	}
	return "http://" + e.Address
}

// ParseEndpoint parses an admin endpoint URL into an Endpoint.
//
// Two schemes are accepted:
//
//	unix:///run/caddy/admin.sock  → Unix domain socket at /run/caddy/admin.sock
//	http://localhost:2019         → TCP to localhost:2019
//	http://localhost              → TCP to localhost:2019 (default port)
//
// A path component after host:port is ignored; the admin API paths are
// supplied per request. Any other scheme is rejected with InvalidEndpointError.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, &InvalidEndpointError{URL: raw, Reason: err.Error()}
	}

	switch u.Scheme {
	case "unix":
		// unix:///path parses the path into u.Path; unix://relative would
		// land in u.Host and is not a usable socket path.
		path := u.Path
		if u.Host != "" && path == "" {
			return Endpoint{}, &InvalidEndpointError{URL: raw, Reason: "unix endpoint requires an absolute socket path (unix:///path)"}
		}
		if path == "" {
			return Endpoint{}, &InvalidEndpointError{URL: raw, Reason: "unix endpoint is missing a socket path"}
		}
		return Endpoint{Network: "unix", Address: path, Host: DefaultUnixHost}, nil

	case "http":
		host := u.Hostname()
		if host == "" {
			return Endpoint{}, &InvalidEndpointError{URL: raw, Reason: "http endpoint is missing a host"}
		}
		port := u.Port()
		if port == "" {
			port = strconv.Itoa(DefaultAdminPort)
		}
		addr := net.JoinHostPort(host, port)
		return Endpoint{Network: "tcp", Address: addr, Host: addr}, nil

	default:
		return Endpoint{}, &InvalidEndpointError{URL: raw, Reason: "unsupported scheme " + strconv.Quote(u.Scheme)}
	}
}

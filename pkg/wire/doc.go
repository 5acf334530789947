// Package wire implements the raw HTTP/1.1 client used to reach the Caddy
// admin interface.
//
// # Overview
//
// The admin interface listens on a Unix domain socket or a TCP port, and the
// rest of the system needs precise control over connection lifetime, timeouts,
// and transfer decoding. The wire package therefore speaks HTTP/1.1 directly
// on a net.Conn instead of going through net/http:
//
//   - Endpoint parsing for unix:///path and http://host[:port] URLs
//     (TCP port defaults to 2019 when omitted)
//   - Request composition: request line, Host header, caller headers,
//     Content-Type and Content-Length when a body is present
//   - Response parsing: status line, ordered headers, then a body framed by
//     Content-Length, chunked transfer coding, or nothing at all
//
// # Usage
//
//	client, err := wire.NewClient("http://127.0.0.1:2019")
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Do(ctx, "GET", "/config/", nil, nil)
//	if err != nil {
//	    return err
//	}
//	if resp.IsJSON() {
//	    var cfg map[string]any
//	    err = resp.DecodeJSON(&cfg)
//	}
//
// # Timeouts and retries
//
// Every connect and read carries a deadline (default 5s, per-call override via
// the context deadline). The client never retries: a timeout or I/O failure
// surfaces as a ConnectError and the connection is discarded, leaving retry
// policy to the caller.
//
// # Error types
//
//   - InvalidEndpointError: the endpoint URL uses an unsupported scheme or is
//     missing its socket path / host
//   - ConnectError: dial, write, or read failed (including timeouts)
//   - ProtocolError: the response bytes were not valid HTTP/1.1
package wire

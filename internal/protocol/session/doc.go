// Package session owns resonator<->daemon transport timing and security.
//
// Ownership boundary:
// - read/write/handshake timeouts and the heartbeat-on-idle interval
// - fixed-delay reconnect policy
// - minimum spacing between primary directives
// - TLS validation and client/server tls.Config construction
package session

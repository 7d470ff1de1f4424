// Package daemon is the controller's transport loop.
//
// A Daemon dials the resonator host over a websocket, announces itself, and
// then turns each resonator_state it receives into at most one rate-limited
// weak_measurement plus an occasional modulate suggestion. Idle periods are
// filled with heartbeats. Any failure inside a session closes it and the
// daemon redials after a fixed delay; only context cancellation ends Run.
package daemon

// Package protocol owns the resonator<->daemon wire contract.
//
// Ownership boundary:
// - message types and their `type` discriminators
// - JSON encode/decode with defaults for missing fields
// - size limits for a single text frame
package protocol

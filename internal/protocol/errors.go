package protocol

import "errors"

var (
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrMalformed       = errors.New("protocol: malformed message")
	ErrMissingType     = errors.New("protocol: missing message type")
	ErrUnknownType     = errors.New("protocol: unknown message type")
)

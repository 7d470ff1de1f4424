package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type envelope struct {
	Type Type `json:"type"`
}

// resonatorStateWire uses pointers so absent fields can take their defaults.
type resonatorStateWire struct {
	OrderParam   *float64 `json:"orderParam"`
	Coherence    *float64 `json:"coherence"`
	ActiveGlyphs []string `json:"activeGlyphs"`
	Oscillators  *int     `json:"oscillators"`
}

// PeekType returns the discriminator without decoding the body.
func PeekType(data []byte) (Type, error) {
	if len(data) > MaxMessageBytes {
		return "", ErrPayloadTooLarge
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(string(env.Type)) == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

// Decode parses one frame into its concrete message. Unrecognised types
// return ErrUnknownType so callers can ignore them; unknown fields are dropped.
func Decode(data []byte) (Message, error) {
	t, err := PeekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeResonatorState:
		return decodeResonatorState(data)
	case TypeDaemonConnect:
		return decodeAs[DaemonConnect](data)
	case TypeWeakMeasurement:
		return decodeAs[WeakMeasurement](data)
	case TypeModulate:
		return decodeAs[Modulate](data)
	case TypeMeasurementCollapse:
		return decodeAs[MeasurementCollapse](data)
	case TypeDaemonHeartbeat:
		return decodeAs[DaemonHeartbeat](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.MessageType(), err)
	}
	return m, nil
}

func decodeResonatorState(data []byte) (Message, error) {
	var wire resonatorStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, TypeResonatorState, err)
	}
	out := ResonatorState{
		OrderParam:   DefaultOrderParam,
		Coherence:    DefaultCoherence,
		ActiveGlyphs: wire.ActiveGlyphs,
	}
	if wire.OrderParam != nil {
		out.OrderParam = *wire.OrderParam
	}
	if wire.Coherence != nil {
		out.Coherence = *wire.Coherence
	}
	if wire.Oscillators != nil {
		out.Oscillators = *wire.Oscillators
	}
	if out.ActiveGlyphs == nil {
		out.ActiveGlyphs = []string{}
	}
	return out, nil
}

package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode renders msg as a single JSON object with its `type` field first.
func Encode(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msg.MessageType(), err)
	}
	head, err := json.Marshal(struct {
		Type Type `json:"type"`
	}{Type: msg.MessageType()})
	if err != nil {
		return nil, err
	}
	out := head[:len(head)-1]
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	if len(out) > MaxMessageBytes {
		return nil, ErrPayloadTooLarge
	}
	return out, nil
}

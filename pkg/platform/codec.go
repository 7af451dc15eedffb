// Package platform carries Go <-> native communication for embedded native
// views: method and event channels over a host-provided [NativeBridge], the
// platform view registry, and the native navigation view built on them.
package platform

import "encoding/json"

// MessageCodec converts channel payloads to and from their wire form.
type MessageCodec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec is the wire format shared with the iOS host. Objects decode to
// map[string]any and numbers to float64, so handlers read ids through
// toInt64.
type JSONCodec struct{}

func (JSONCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode returns nil for an empty payload.
func (JSONCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DefaultCodec is used by every channel.
var DefaultCodec MessageCodec = JSONCodec{}

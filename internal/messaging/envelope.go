package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope field names.
const (
	FieldMessage   = "message"
	FieldTimestamp = "timestamp"
)

// Encode renders msg as a JSON object for the wire.
//
// Strings are wrapped as {"message": s}. Maps and structs that encode to
// a JSON object are sent as-is; any other value is wrapped like a string.
// Every payload carries a "timestamp" (RFC 3339, UTC) unless it already
// has one.
func Encode(msg any, now time.Time) ([]byte, error) {
	obj, err := toObject(msg)
	if err != nil {
		return nil, err
	}
	if _, ok := obj[FieldTimestamp]; !ok {
		obj[FieldTimestamp] = now.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func toObject(msg any) (map[string]any, error) {
	switch v := msg.(type) {
	case string:
		return map[string]any{FieldMessage: v}, nil
	case map[string]any:
		obj := make(map[string]any, len(v)+1)
		for k, val := range v {
			obj[k] = val
		}
		return obj, nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	var obj map[string]any
	if json.Unmarshal(data, &obj) == nil && obj != nil {
		return obj, nil
	}
	return map[string]any{FieldMessage: json.RawMessage(data)}, nil
}

// Decode parses a wire payload into a JSON object.
func Decode(payload []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrDecode)
	}
	return obj, nil
}

// MessageText returns the "message" field when it is a string.
func MessageText(obj map[string]any) (string, bool) {
	s, ok := obj[FieldMessage].(string)
	return s, ok
}

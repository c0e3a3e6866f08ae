package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeArguments normalizes tool-call arguments to structured form. Backends
// send either an encoded JSON string or an already-decoded value; both decode
// to the same map. Structured input is round-tripped through JSON so numbers
// come out as float64 either way.
func DecodeArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		return decodeArgumentBytes([]byte(v))
	case json.RawMessage:
		return decodeArgumentBytes(v)
	case []byte:
		return decodeArgumentBytes(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode tool arguments: %w", err)
		}
		return decodeArgumentBytes(encoded)
	}
}

func decodeArgumentBytes(data []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// encodeArguments is the inverse used by backends that want a JSON string.
func encodeArguments(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode tool arguments: %w", err)
	}
	return string(data), nil
}

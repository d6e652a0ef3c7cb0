// Package intent parses and strictly validates raw tool-call arguments into
// canonical, immutable intents. It is the only layer allowed to interpret the
// loose ToolArgs payload: everything downstream works with typed values.
//
// The upstream realtime channel may deliver arguments as a JSON object, as a
// string holding one, or as malformed fragments from a partial response.
// Nothing here panics on bad input; every failure is a value.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parse normalizes raw tool-call arguments into a key/value map.
//
// Accepted shapes: an already-decoded map, a JSON string encoding an object,
// or raw bytes of one. Anything else (nil, empty string, non-JSON, a JSON
// array or scalar at the top level) is a decode error.
func Parse(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("tool call data is nil")
	case map[string]any:
		return v, nil
	case string:
		return parseJSONObject([]byte(strings.TrimSpace(v)))
	case []byte:
		return parseJSONObject(v)
	case json.RawMessage:
		return parseJSONObject(v)
	default:
		return nil, fmt.Errorf("unexpected data type: %T", raw)
	}
}

func parseJSONObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tool call data")
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", jsonTypeName(decoded))
	}
	return obj, nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

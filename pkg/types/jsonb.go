package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// scanJSON decodes a json/jsonb column value into dest.
func scanJSON(value any, dest any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func valueJSON(src any) (driver.Value, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// JSONMap stores free-form metadata.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return valueJSON(map[string]any(m))
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	out := map[string]any{}
	if err := scanJSON(value, &out); err != nil {
		return fmt.Errorf("scan json map: %w", err)
	}
	*m = out
	return nil
}

// JSONValue keeps any JSON document verbatim: an object, an array or a scalar.
type JSONValue json.RawMessage

// JSONString wraps s as a JSON string value.
func JSONString(s string) JSONValue {
	raw, _ := json.Marshal(s)
	return JSONValue(raw)
}

// IsBlank reports whether v carries nothing deliverable: no bytes, null, or a
// whitespace-only string.
func (v JSONValue) IsBlank() bool {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Pretty renders v indented for human readers.
func (v JSONValue) Pretty() string {
	var out bytes.Buffer
	if err := json.Indent(&out, v, "", "  "); err != nil {
		return string(v)
	}
	return out.String()
}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *JSONValue) UnmarshalJSON(data []byte) error {
	if v == nil {
		return fmt.Errorf("json value: UnmarshalJSON on nil pointer")
	}
	*v = append((*v)[0:0], data...)
	return nil
}

// Value implements driver.Valuer.
func (v JSONValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if !json.Valid(v) {
		return nil, fmt.Errorf("json value: invalid document")
	}
	return string(v), nil
}

// Scan implements sql.Scanner.
func (v *JSONValue) Scan(value any) error {
	switch raw := value.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(JSONValue(nil), raw...)
	case string:
		*v = JSONValue(raw)
	case int64, float64, bool:
		// sqlite stores bare scalars in a jsonb column with numeric affinity
		encoded, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("scan json value: %w", err)
		}
		*v = encoded
	default:
		return fmt.Errorf("scan json value: unsupported column type %T", value)
	}
	return nil
}

package kasa

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Value is one node of a decoded JSON tree: nil, bool, float64, string,
// []any or map[string]any, as produced by encoding/json.
type Value struct {
	v any
}

func NewValue(v any) Value {
	return Value{v}
}

func ParseValue(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, &ProtocolError{Reason: "plaintext is not valid UTF-8"}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, &ProtocolError{Reason: "plaintext is not JSON", Err: err}
	}

	return Value{v}, nil
}

func (v Value) Raw() any {
	return v.v
}

func (v Value) IsNull() bool {
	return v.v == nil
}

// Get walks nested objects along path.
func (v Value) Get(path ...string) (Value, bool) {
	cur := v.v
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return Value{}, false
		}
		cur, ok = obj[key]
		if !ok {
			return Value{}, false
		}
	}

	return Value{cur}, true
}

func (v Value) Object() (map[string]any, bool) {
	obj, ok := v.v.(map[string]any)
	return obj, ok
}

func (v Value) Array() ([]Value, bool) {
	arr, ok := v.v.([]any)
	if !ok {
		return nil, false
	}

	out := make([]Value, len(arr))
	for i, item := range arr {
		out[i] = Value{item}
	}
	return out, true
}

func (v Value) Float() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok
}

// Int only accepts numbers without a fractional part.
func (v Value) Int() (int, bool) {
	f, ok := v.v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func (v Value) Text() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &v.v)
}

// Decode converts the subtree into a typed struct.
func (v Value) Decode(out any) error {
	b, err := json.Marshal(v.v)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	return dec.Decode(out)
}

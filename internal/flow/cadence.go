package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is one node of a JSON-Cadence value tree as emitted by the access
// API: {"type": "...", "value": ...}.
type Value struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// DictEntry is one key/value pair of a Cadence dictionary.
type DictEntry struct {
	Key   Value `json:"key"`
	Value Value `json:"value"`
}

type structField struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

type structBody struct {
	ID     string        `json:"id"`
	Fields []structField `json:"fields"`
}

// String decodes String and Address values.
func (v *Value) String() (string, error) {
	switch v.Type {
	case "String", "Address", "Character":
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return "", fmt.Errorf("decode %s: %w", v.Type, err)
		}
		return s, nil
	}
	return "", fmt.Errorf("cadence %s is not a string", v.Type)
}

// Float decodes fixed-point and integer values, all of which Cadence
// serializes as decimal strings.
func (v *Value) Float() (float64, error) {
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return 0, fmt.Errorf("decode %s: %w", v.Type, err)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", v.Type, s, err)
	}
	return f, nil
}

// Int decodes integer values.
func (v *Value) Int() (int, error) {
	f, err := v.Float()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Optional unwraps an Optional value; nil means the optional was empty.
func (v *Value) Optional() (*Value, error) {
	if v.Type != "Optional" {
		return nil, fmt.Errorf("cadence %s is not an optional", v.Type)
	}
	if len(v.Value) == 0 || string(v.Value) == "null" {
		return nil, nil
	}
	var inner Value
	if err := json.Unmarshal(v.Value, &inner); err != nil {
		return nil, fmt.Errorf("decode optional: %w", err)
	}
	return &inner, nil
}

// Array decodes an Array value.
func (v *Value) Array() ([]Value, error) {
	if v.Type != "Array" {
		return nil, fmt.Errorf("cadence %s is not an array", v.Type)
	}
	var items []Value
	if err := json.Unmarshal(v.Value, &items); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	return items, nil
}

// Dictionary decodes a Dictionary value.
func (v *Value) Dictionary() ([]DictEntry, error) {
	if v.Type != "Dictionary" {
		return nil, fmt.Errorf("cadence %s is not a dictionary", v.Type)
	}
	var entries []DictEntry
	if err := json.Unmarshal(v.Value, &entries); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	return entries, nil
}

// Fields decodes a Struct value into a field-name lookup.
func (v *Value) Fields() (map[string]Value, error) {
	if v.Type != "Struct" && v.Type != "Resource" {
		return nil, fmt.Errorf("cadence %s is not a composite", v.Type)
	}
	var body structBody
	if err := json.Unmarshal(v.Value, &body); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	fields := make(map[string]Value, len(body.Fields))
	for _, f := range body.Fields {
		fields[f.Name] = f.Value
	}
	return fields, nil
}

// =============================================================================
// Argument encoding
// =============================================================================

func encodeValue(typ string, value interface{}) []byte {
	b, _ := json.Marshal(map[string]interface{}{"type": typ, "value": value})
	return b
}

func encodeString(s string) json.RawMessage {
	return encodeValue("String", s)
}

func encodeAddress(addr string) json.RawMessage {
	return encodeValue("Address", addr)
}

// NewStringArray encodes a [String] script argument.
func NewStringArray(items []string) []byte {
	values := make([]json.RawMessage, len(items))
	for i, s := range items {
		values[i] = encodeString(s)
	}
	return encodeValue("Array", values)
}

// NewAddressArray encodes an [Address] script argument.
func NewAddressArray(items []string) []byte {
	values := make([]json.RawMessage, len(items))
	for i, a := range items {
		values[i] = encodeAddress(a)
	}
	return encodeValue("Array", values)
}

// NewOptionalAddressArray encodes an [Address?] script argument; empty
// strings become nil optionals.
func NewOptionalAddressArray(items []string) []byte {
	values := make([]json.RawMessage, len(items))
	for i, a := range items {
		if a == "" {
			values[i] = encodeValue("Optional", nil)
		} else {
			values[i] = encodeValue("Optional", json.RawMessage(encodeAddress(a)))
		}
	}
	return encodeValue("Array", values)
}

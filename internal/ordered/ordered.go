// Package ordered decodes JSON while preserving the declaration order of
// object keys. Service schema documents are order sensitive: structure
// members serialize in the order in which the schema declares them, and
// the stdlib map type would lose that order.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Map is a JSON object whose keys remember their declaration order.
//
// The zero value is not ready to use; call [NewMap] instead.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty [Map].
func NewMap() *Map {
	return &Map{
		keys:   []string{},
		values: map[string]any{},
	}
}

// Get returns the value stored under key and whether it is present.
func (m *Map) Get(key string) (any, bool) {
	value, found := m.values[key]
	return value, found
}

// GetString returns the value under key when it is a string, otherwise
// it returns the empty string.
func (m *Map) GetString(key string) string {
	value, _ := m.values[key].(string)
	return value
}

// Set stores value under key, appending the key when it is new.
func (m *Map) Set(key string, value any) {
	if _, found := m.values[key]; !found {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key from the map.
func (m *Map) Delete(key string) {
	if _, found := m.values[key]; !found {
		return
	}
	delete(m.values, key)
	for idx, existing := range m.keys {
		if existing == key {
			m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
			break
		}
	}
}

// Keys returns the keys in declaration order. The caller must
// not mutate the returned slice.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Copy returns a shallow copy of the map: the key order and the
// key-to-value mapping are fresh, the values are shared.
func (m *Map) Copy() *Map {
	out := &Map{
		keys:   append([]string{}, m.keys...),
		values: make(map[string]any, len(m.values)),
	}
	for key, value := range m.values {
		out.values[key] = value
	}
	return out
}

// UnmarshalJSON implements [json.Unmarshaler].
func (m *Map) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	value, err := decodeValue(decoder)
	if err != nil {
		return err
	}
	object, good := value.(*Map)
	if !good {
		return fmt.Errorf("ordered: expected JSON object, got %T", value)
	}
	*m = *object
	return nil
}

// MarshalJSON implements [json.Marshaler] emitting keys in declaration order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for idx, key := range m.keys {
		if idx > 0 {
			out.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		out.Write(encodedKey)
		out.WriteByte(':')
		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		out.Write(encodedValue)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// Decode parses data as JSON. Objects decode to [*Map], arrays to []any,
// numbers to int64 when integral and float64 otherwise, and the remaining
// scalars to their obvious Go types.
func Decode(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	value, err := decodeValue(decoder)
	if err != nil {
		return nil, err
	}
	// Reject trailing garbage after the first JSON value.
	if decoder.More() {
		return nil, fmt.Errorf("ordered: trailing data after JSON value")
	}
	return value, nil
}

func decodeValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch tok := token.(type) {
	case json.Delim:
		switch tok {
		case '{':
			return decodeObject(decoder)
		case '[':
			return decodeArray(decoder)
		default:
			return nil, fmt.Errorf("ordered: unexpected delimiter %q", tok)
		}
	case json.Number:
		return decodeNumber(tok)
	default:
		// string, bool, or nil
		return tok, nil
	}
}

func decodeObject(decoder *json.Decoder) (*Map, error) {
	out := NewMap()
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, good := keyToken.(string)
		if !good {
			return nil, fmt.Errorf("ordered: expected object key, got %v", keyToken)
		}
		value, err := decodeValue(decoder)
		if err != nil {
			return nil, err
		}
		out.Set(key, value)
	}
	// consume the closing '}'
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeArray(decoder *json.Decoder) ([]any, error) {
	out := []any{}
	for decoder.More() {
		value, err := decodeValue(decoder)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	// consume the closing ']'
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeNumber(number json.Number) (any, error) {
	if !strings.ContainsAny(number.String(), ".eE") {
		value, err := number.Int64()
		if err == nil {
			return value, nil
		}
	}
	return number.Float64()
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	NullValue ValueKind = iota
	NumberValue
	StringValue
)

func (k ValueKind) String() string {
	switch k {
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	default:
		return "null"
	}
}

// Value is a tagged property value: number, string or null.
type Value struct {
	kind ValueKind
	n    float64
	s    string
}

func Null() Value { return Value{} }
func Number(f float64) Value { return Value{kind: NumberValue, n: f} }
func String(s string) Value { return Value{kind: StringValue, s: s} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullValue }
func (v Value) Equal(o Value) bool { return v == o }

// Float coerces v to a number. Strings are parsed; null never coerces.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case NumberValue:
		return v.n, true
	case StringValue:
		return ParseNumber(v.s)
	default:
		return 0, false
	}
}

// Text renders v as a string; null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case NumberValue:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case StringValue:
		return v.s
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NumberValue:
		return json.Marshal(v.n)
	case StringValue:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON value. Booleans, objects and arrays are
// kept as their compact JSON text.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty property value")
	}
	switch b[0] {
	case 'n':
		*v = Null()
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*v = String(buf.String())
	case 't', 'f':
		*v = String(string(b))
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", b, err)
		}
		*v = Number(f)
	}
	return nil
}

// ParseNumber parses a trimmed decimal number. Empty strings and
// non-finite values do not count as numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PropertyMap is an insertion-ordered mapping of property names to values.
// The zero value is an empty map ready to use.
type PropertyMap struct {
	keys []string
	vals map[string]Value
}

func NewPropertyMap(capacity int) PropertyMap {
	return PropertyMap{
		keys: make([]string, 0, capacity),
		vals: make(map[string]Value, capacity),
	}
}

// Set adds or replaces k. A replaced key keeps its original position.
func (m *PropertyMap) Set(k string, v Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m PropertyMap) Get(k string) (Value, bool) {
	v, ok := m.vals[k]
	return v, ok
}

func (m PropertyMap) Len() int { return len(m.keys) }

func (m PropertyMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m PropertyMap) Clone() PropertyMap {
	out := NewPropertyMap(len(m.keys))
	for _, k := range m.keys {
		out.Set(k, m.vals[k])
	}
	return out
}

// Select returns a copy holding only the keys for which keep returns true.
func (m PropertyMap) Select(keep func(string) bool) PropertyMap {
	out := NewPropertyMap(len(m.keys))
	for _, k := range m.keys {
		if keep(k) {
			out.Set(k, m.vals[k])
		}
	}
	return out
}

func (m PropertyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping member order. null decodes
// to an empty map.
func (m *PropertyMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	out := NewPropertyMap(8)
	if tok == nil {
		*m = out
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties must be an object or null")
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse properties: %w", err)
		}
		k, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		out.Set(k, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	*m = out
	return nil
}

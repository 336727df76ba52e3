package envelope

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindString
	KindInteger
	KindNumber
	KindMap
	KindList
)

// SentAtLayout is the layout used for sent_at and other timestamp header values
const SentAtLayout = "2006-01-02T15:04:05.000Z"

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a loosely-typed header value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string
	i    int64
	f    float64
	m    *Map
	l    []Value
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// Integer wraps an integer
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Number wraps a float
func Number(f float64) Value { return Value{kind: KindNumber, f: f} }

// MapValue wraps a nested map. A nil map is stored as an empty one.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// List wraps a list of values
func List(values ...Value) Value {
	l := make([]Value, len(values))
	copy(l, values)
	return Value{kind: KindList, l: l}
}

// Time renders t as an RFC 3339 UTC string with millisecond precision
func Time(t time.Time) Value {
	return String(t.UTC().Format(SentAtLayout))
}

// StringMap builds a map value from string pairs, in the order of keys
func StringMap(keys []string, values map[string]string) Value {
	m := NewMap()
	for _, k := range keys {
		m.Set(k, String(values[k]))
	}
	return MapValue(m)
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInteger returns integers, and numbers without a fractional part
func (v Value) AsInteger() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindNumber:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f <= math.MaxInt64 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// AsNumber returns numbers and integers as float64
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	}
	return 0, false
}

// AsMap returns the nested map held by v
func (v Value) AsMap() (*Map, bool) { return v.m, v.kind == KindMap }

// AsList returns a copy of the list held by v
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	l := make([]Value, len(v.l))
	copy(l, v.l)
	return l, true
}

// Equal reports deep equality. Map key order is not significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindInteger:
		return v.i == o.i
	case KindNumber:
		return v.f == o.f
	case KindMap:
		return v.m.Equal(o.m)
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) clone() Value {
	switch v.kind {
	case KindMap:
		return MapValue(v.m.Clone())
	case KindList:
		l := make([]Value, len(v.l))
		for i := range v.l {
			l[i] = v.l[i].clone()
		}
		return Value{kind: KindList, l: l}
	}
	return v
}

// MarshalJSON encodes the value. Non-finite numbers are the only values
// that cannot be encoded.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindString:
		return json.Marshal(v.s)
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindNumber:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, errors.Newf("unsupported number %v", v.f)
		}
		b, err := json.Marshal(v.f)
		if err != nil {
			return nil, err
		}
		// Whole numbers keep a fraction so they decode as numbers, not integers.
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	case KindMap:
		return v.m.MarshalJSON()
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.l {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, errors.Wrapf(err, "list index %d", i)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, errors.Newf("unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes any JSON value
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, errors.Newf("object key is %T", kt)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return MapValue(m), nil
		case '[':
			var l []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				l = append(l, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, l: l}, nil
		}
		return Value{}, errors.Newf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		if !strings.ContainsAny(string(t), ".eE") {
			if i, err := t.Int64(); err == nil {
				return Integer(i), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, errors.Newf("unexpected token %T", tok)
}

// Map is an ordered string-keyed mapping of header values
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap creates an empty map
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores v under key. An existing key keeps its position.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the value under key when it is a string
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Delete removes key, keeping the order of the remaining entries
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Range calls fn for each entry in order until fn returns false
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy
func (m *Map) Clone() *Map {
	c := NewMap()
	m.Range(func(k string, v Value) bool {
		c.Set(k, v.clone())
		return true
	})
	return c
}

// Equal compares entries regardless of order
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	equal := true
	m.Range(func(k string, v Value) bool {
		ov, ok := o.Get(k)
		equal = ok && v.Equal(ov)
		return equal
	})
	return equal
}

// MarshalJSON encodes every entry and fails on the first unencodable value
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	m.Range(func(k string, v Value) bool {
		var b []byte
		b, err = v.MarshalJSON()
		if err != nil {
			err = errors.Wrapf(err, "key %q", k)
			return false
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(k)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(b)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order
func (m *Map) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.kind != KindMap {
		return errors.Newf("expected JSON object, got %s", v.kind)
	}
	*m = *v.m
	return nil
}

// ParseMap decodes a JSON object
func ParseMap(data []byte) (*Map, error) {
	m := NewMap()
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

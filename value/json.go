package value

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

var ErrNotFinite = errors.New("number is not finite")

// WriteJSON streams v into enc keeping map key order.
func WriteJSON(enc *jsontext.Encoder, v Value) error {
	switch v.kind {
	case KindNull:
		return enc.WriteToken(jsontext.Null)
	case KindBool:
		return enc.WriteToken(jsontext.Bool(v.b))
	case KindNumber:
		if !v.Finite() {
			return fmt.Errorf("encode %v: %w", v.n, ErrNotFinite)
		}
		return enc.WriteToken(jsontext.Float(v.n))
	case KindString:
		return enc.WriteToken(jsontext.String(v.s))
	case KindList:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, item := range v.list {
			if err := WriteJSON(enc, item); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	case KindMap:
		return WriteJSONMap(enc, v.m)
	}
	return fmt.Errorf("unexpected kind %s", v.kind)
}

func WriteJSONMap(enc *jsontext.Encoder, m *Map) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	var err error
	m.Range(func(k string, item Value) bool {
		if err = enc.WriteToken(jsontext.String(k)); err != nil {
			return false
		}
		err = WriteJSON(enc, item)
		return err == nil
	})
	if err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}

// ReadJSON reads the next complete JSON value from dec.
func ReadJSON(dec *jsontext.Decoder) (Value, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return Value{}, err
	}
	return readJSONToken(dec, tok)
}

func readJSONToken(dec *jsontext.Decoder, tok jsontext.Token) (Value, error) {
	switch tok.Kind() {
	case 'n':
		return Null(), nil
	case 'f', 't':
		return Bool(tok.Bool()), nil
	case '0':
		return Number(tok.Float()), nil
	case '"':
		return String(tok.String()), nil
	case '[':
		items := []Value{}
		for dec.PeekKind() != ']' {
			item, err := ReadJSON(dec)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err
		}
		return List(items...), nil
	case '{':
		m := NewMap()
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return Value{}, err
			}
			item, err := ReadJSON(dec)
			if err != nil {
				return Value{}, err
			}
			m.Set(name.String(), item)
		}
		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err
		}
		return Object(m), nil
	}
	return Value{}, fmt.Errorf("unexpected json token %q", tok.Kind())
}

// NewJSONDecoder returns a decoder that tolerates duplicate names, the last
// occurrence wins.
func NewJSONDecoder(r io.Reader) *jsontext.Decoder {
	return jsontext.NewDecoder(r, jsontext.AllowDuplicateNames(true))
}

// ParseJSON parses exactly one JSON value.
func ParseJSON(data []byte) (Value, error) {
	dec := NewJSONDecoder(bytes.NewReader(data))
	v, err := ReadJSON(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			return Value{}, errors.New("unexpected data after top-level value")
		}
		return Value{}, err
	}
	return v, nil
}

// ParseJSONMap parses a JSON object.
func ParseJSONMap(data []byte) (*Map, error) {
	v, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", v.Kind())
	}
	return m, nil
}

// MustParseJSONMap is ParseJSONMap for literals, it panics on error.
func MustParseJSONMap(s string) *Map {
	m, err := ParseJSONMap([]byte(s))
	if err != nil {
		panic(err)
	}
	return m
}

func (v Value) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteJSON(jsontext.NewEncoder(buf), v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return Object(m).MarshalJSON()
}

func (m *Map) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	switch parsed.Kind() {
	case KindNull:
		*m = *NewMap()
	case KindMap:
		*m = *parsed.m
	default:
		return fmt.Errorf("expected object, got %s", parsed.Kind())
	}
	return nil
}

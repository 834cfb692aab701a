package value

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

// Validate reports the first value in the tree that no snapshot format can
// hold: a NaN or infinite number, or a string that is not valid UTF-8.
func (v Value) Validate() error {
	switch v.kind {
	case KindNumber:
		if !v.Finite() {
			return fmt.Errorf("%v: %w", v.n, ErrNotFinite)
		}
	case KindString:
		if !utf8.ValidString(v.s) {
			return fmt.Errorf("%q: %w", v.s, ErrInvalidUTF8)
		}
	case KindList:
		for i, item := range v.list {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case KindMap:
		return v.m.Validate()
	}
	return nil
}

// ValidateEntry checks one key and its value.
func ValidateEntry(key string, v Value) error {
	if !utf8.ValidString(key) {
		return fmt.Errorf("key %q: %w", key, ErrInvalidUTF8)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (m *Map) Validate() error {
	var err error
	m.Range(func(key string, v Value) bool {
		err = ValidateEntry(key, v)
		return err == nil
	})
	return err
}

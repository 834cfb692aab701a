package value

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FromAny converts native Go values, as produced by encoding/json or written
// by hand, into a Value tree. Keys of Go maps are sorted because their order
// is not defined.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case *Map:
		if t == nil {
			return Null(), nil
		}
		return Object(t.Clone()), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return finiteNumber(t)
	case float32:
		return finiteNumber(float64(t))
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("json number %q: %w", t, err)
		}
		return finiteNumber(f)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return List(items...), nil
	case map[string]any:
		m, err := FromGoMap(t)
		if err != nil {
			return Value{}, err
		}
		return Object(m), nil
	}
	return Value{}, fmt.Errorf("unsupported type %T", x)
}

// FromGoMap converts a Go map into an ordered Map with sorted keys.
func FromGoMap(g map[string]any) (*Map, error) {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := NewMap()
	for _, k := range keys {
		v, err := FromAny(g[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m.Set(k, v)
	}
	return m, nil
}

// MustMap is FromGoMap for literals, it panics on error.
func MustMap(g map[string]any) *Map {
	m, err := FromGoMap(g)
	if err != nil {
		panic(err)
	}
	return m
}

func finiteNumber(f float64) (Value, error) {
	v := Number(f)
	if !v.Finite() {
		return Value{}, fmt.Errorf("%v: %w", f, ErrNotFinite)
	}
	return v, nil
}

// ToAny converts the tree back into native Go values: nil, bool, float64,
// string, []any and map[string]any.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.ToAny()
		}
		return items
	case KindMap:
		return v.m.ToAny()
	}
	return nil
}

func (m *Map) ToAny() map[string]any {
	g := make(map[string]any, m.Len())
	m.Range(func(k string, v Value) bool {
		g[k] = v.ToAny()
		return true
	})
	return g
}

package wire

import (
	"encoding/json"
	"math"
	"sort"
)

// AsObject accepts *Object or map[string]any.
func AsObject(v any) (*Object, bool) {
	switch t := v.(type) {
	case *Object:
		return t, t != nil
	case map[string]any:
		return FromMap(t), true
	}
	return nil, false
}

// FromMap converts a Go map, recursively, sorting keys since maps carry no order.
func FromMap(m map[string]any) *Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o := NewObject()
	for _, k := range keys {
		o.Set(k, fromGo(m[k]))
	}
	return o
}

func fromGo(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return FromMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = fromGo(t[i])
		}
		return out
	}
	return v
}

// ToMap converts the object to plain Go maps, slices and scalars.
// json.Number values become int64 or float64.
func (o *Object) ToMap() map[string]any {
	if o == nil {
		return nil
	}
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = Plain(o.vals[k])
	}
	return m
}

// Plain converts v to the types produced by encoding/json into an any,
// except integers which stay int64.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Plain(t[i])
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// Int accepts integral numbers of any representation.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
	}
	f, ok := Float(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Strings accepts []string or a []any made only of strings.
func Strings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// StringList builds the []any form of a string list for a wire document.
func StringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

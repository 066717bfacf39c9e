// Package tag implements the named-value tree used to persist slot contents
// and to carry auxiliary item data.
//
// A tree is built from Compound (string keyed) and List (ordered) nodes whose
// leaves are integers, floats, strings, bools or byte slices. Values decoded
// from the wire may come back with a different numeric width than they were
// written with, so Equal compares numbers by value rather than by Go type.
package tag

import (
	"bytes"
	"math"
	"sort"
)

// Compound is a string keyed node of the tree.
type Compound map[string]any

// List is an ordered node of the tree.
type List []any

// Clone returns a deep copy of the compound. A nil compound clones to nil.
func (c Compound) Clone() Compound {
	if c == nil {
		return nil
	}
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = Clone(v)
	}
	return out
}

// Keys returns the compound keys in sorted order.
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns the integer stored under key.
func (c Compound) Int(key string) (int64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return Int(v)
}

// String returns the string stored under key.
func (c Compound) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// Compound returns the nested compound stored under key.
func (c Compound) Compound(key string) (Compound, bool) {
	return AsCompound(c[key])
}

// List returns the list stored under key.
func (c Compound) List(key string) (List, bool) {
	return AsList(c[key])
}

// Clone returns a deep copy of any tree value.
func Clone(v any) any {
	switch t := v.(type) {
	case Compound:
		return t.Clone()
	case map[string]any:
		return Compound(t).Clone()
	case List:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case []any:
		return Clone(List(t))
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// AsCompound converts a decoded map into a Compound.
func AsCompound(v any) (Compound, bool) {
	switch t := v.(type) {
	case Compound:
		return t, true
	case map[string]any:
		return Compound(t), true
	}
	return nil, false
}

// AsList converts a decoded slice into a List.
func AsList(v any) (List, bool) {
	switch t := v.(type) {
	case List:
		return t, true
	case []any:
		return List(t), true
	}
	return nil, false
}

// Int widens any integer kind to int64.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func float(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Normalize rewrites decoded maps and slices into Compound and List nodes so
// that typed accessors work on trees that came off the wire.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Compound, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case Compound:
		for k, e := range t {
			t[k] = Normalize(e)
		}
		return t
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case List:
		for i, e := range t {
			t[i] = Normalize(e)
		}
		return t
	}
	return v
}

// Equal reports whether two tree values hold the same data. A nil compound
// equals an empty one.
func Equal(a, b any) bool {
	if ca, ok := AsCompound(a); ok || a == nil {
		cb, okb := AsCompound(b)
		if !okb && b != nil {
			return false
		}
		if len(ca) != len(cb) {
			return false
		}
		for k, va := range ca {
			vb, exists := cb[k]
			if !exists || !Equal(va, vb) {
				return false
			}
		}
		return true
	}
	if la, ok := AsList(a); ok {
		lb, okb := AsList(b)
		if !okb || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	if eq, numeric := numberEqual(a, b); numeric {
		return eq
	}
	if ba, ok := a.([]byte); ok {
		bb, okb := b.([]byte)
		return okb && bytes.Equal(ba, bb)
	}
	return a == b
}

// numberEqual compares two numbers by value. An integral float equals the
// matching integer, so data decoded from JSON matches data decoded from
// msgpack. numeric is false when a is not a number.
func numberEqual(a, b any) (eq, numeric bool) {
	ia, aInt := Int(a)
	fa, aFloat := float(a)
	if !aInt && !aFloat {
		return false, false
	}
	ib, bInt := Int(b)
	fb, bFloat := float(b)
	switch {
	case aInt && bInt:
		return ia == ib, true
	case aFloat && bFloat:
		return fa == fb, true
	case aInt && bFloat:
		return integral(fb) && int64(fb) == ia, true
	case aFloat && bInt:
		return integral(fa) && int64(fa) == ib, true
	}
	return false, true
}

func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

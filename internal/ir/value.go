package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value types a behavior description
// may carry. There is no float variant: numeric leaf parameters (poses,
// durations) are carried as decimal strings so encodings stay byte-stable.
type Value interface {
	irValue()
}

// String is a string value.
type String string

func (String) irValue() {}

// Int is an integer value.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values. Iterate with SortedKeys.
type Object map[string]Value

func (Object) irValue() {}

// Pair is a key/value pair for building objects in declaration order.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair{key, value}.
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// ObjectOf builds an Object from pairs. Later duplicates win.
func ObjectOf(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Strings converts a string slice to an Array of String.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns the object's keys ordered by UTF-16 code units,
// as RFC 8785 requires.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by their UTF-16 encoding. This differs from
// Go's byte order for characters above the BMP.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

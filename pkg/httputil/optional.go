package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that remembers whether it was sent. Absent fields
// leave Set false; an explicit null sets both Set and Null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Present reports whether the field was sent with a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Truthy reports whether the field was sent with a value other than the zero
// value of T.
func Truthy[T comparable](o Optional[T]) bool {
	var zero T
	return o.Present() && o.Value != zero
}

// Coalesce returns o's value when it is truthy and current otherwise. Zero
// and empty values keep current, so a client cannot clear a field to 0 or "".
func Coalesce[T comparable](o Optional[T], current T) T {
	if Truthy(o) {
		return o.Value
	}
	return current
}

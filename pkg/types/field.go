// Package types holds JSON helpers shared by request payloads.
package types

import (
	"bytes"
	"encoding/json"
)

// Field distinguishes an omitted JSON key from an explicit null. When the key
// is sent, Present is true; a null leaves Value nil.
type Field[T any] struct {
	Present bool
	Value   *T
}

// Set builds a present field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: &v}
}

// Null builds a present field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Present: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Present = true
	f.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

// IsNull reports an explicit null.
func (f Field[T]) IsNull() bool {
	return f.Present && f.Value == nil
}

// Get returns the value and whether one was sent.
func (f Field[T]) Get() (T, bool) {
	if f.Value == nil {
		var zero T
		return zero, false
	}
	return *f.Value, true
}

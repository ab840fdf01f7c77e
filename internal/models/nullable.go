package models

import (
	"bytes"
	"encoding/json"
)

// Null is an optional value. Fields that may be legitimately absent in the
// source data use Null instead of a zero value so downstream computations
// can distinguish "missing" from "zero" and propagate nulls explicitly.
type Null[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Null[T] {
	return Null[T]{Value: v, Valid: true}
}

// None is the absent value.
func None[T any]() Null[T] {
	return Null[T]{}
}

// Or returns the value when present, otherwise def.
func (n Null[T]) Or(def T) T {
	if n.Valid {
		return n.Value
	}
	return def
}

var jsonNull = []byte("null")

// MarshalJSON encodes absent values as JSON null.
func (n Null[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON treats JSON null as absent.
func (n *Null[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*n = Null[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Null[T]{Value: v, Valid: true}
	return nil
}

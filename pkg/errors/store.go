package errors

import (
	stdErrors "errors"
	"fmt"
)

// StoreError identifies a failed remote collection operation. Accessors use it
// to decide whether a local-cache recovery applies and to label telemetry.
type StoreError struct {
	Collection string
	Op         string
	Err        error
}

// Store wraps err with the collection and operation that produced it.
func Store(collection, op string, err error) *StoreError {
	return &StoreError{Collection: collection, Op: op, Err: err}
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Collection, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsStore extracts a StoreError from anywhere in the chain.
func AsStore(err error) *StoreError {
	if err == nil {
		return nil
	}
	var typed *StoreError
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

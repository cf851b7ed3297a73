package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrKeyColumnMissing    = errors.New("key column missing from header")
	ErrStoreRead           = errors.New("store read error")
	ErrStoreWrite          = errors.New("store write error")
	ErrNotificationChannel = errors.New("notification channel error")
	ErrListenerStopped     = errors.New("change listener stopped")
)

// ValidationError reports a row that could not be converted into a typed lead.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: field %q: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StoreError wraps a collaborator failure. Written counts the keys that were
// already applied when a write failed part way through.
type StoreError struct {
	Kind    error
	Store   string
	Op      string
	Written int
	Err     error
}

func (e *StoreError) Error() string {
	if e.Kind == ErrStoreWrite && e.Written > 0 {
		return fmt.Sprintf("%s %s failed after %d keys: %v", e.Store, e.Op, e.Written, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func NewReadError(store string, op string, err error) error {
	return &StoreError{Kind: ErrStoreRead, Store: store, Op: op, Err: err}
}

func NewWriteError(store string, op string, written int, err error) error {
	return &StoreError{Kind: ErrStoreWrite, Store: store, Op: op, Written: written, Err: err}
}

func NewChannelError(op string, err error) error {
	return &StoreError{Kind: ErrNotificationChannel, Store: "notifications", Op: op, Err: err}
}

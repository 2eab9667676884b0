package storage

import (
	"errors"
	"fmt"
)

// ErrCorrupted reports unreadable or unwritable persisted dependency data.
// The only recovery is a clean rebuild of the store.
var ErrCorrupted = errors.New("corrupted dependency data")

// CorruptedError carries the failed operation and its cause.
type CorruptedError struct {
	Op  string
	Err error
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrCorrupted, e.Op, e.Err)
}

func (e *CorruptedError) Unwrap() []error {
	return []error{ErrCorrupted, e.Err}
}

// Fail aborts the current store operation with a CorruptedError.
// Index accessors have no error results; the store API recovers the panic with Recover.
func Fail(op string, err error) {
	panic(&CorruptedError{Op: op, Err: err})
}

// Recover converts a CorruptedError panic into *err; other panics propagate.
// It must be called directly by a deferred statement.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if c, ok := r.(*CorruptedError); ok {
		*err = c
		return
	}
	panic(r)
}

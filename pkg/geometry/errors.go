package geometry

import (
	"errors"
	"fmt"
)

// ErrDegenerate marks input that has no usable geometry.
var ErrDegenerate = errors.New("degenerate geometry")

// Error reports a failed buffer construction. It is recoverable: the caller
// aborts the current analysis and keeps whatever it had before.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("geometry: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func degenerate(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", ErrDegenerate, fmt.Sprintf(format, args...))}
}

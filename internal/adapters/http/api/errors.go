package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// KindError ties an operation to a sentinel kind and an optional cause.
type KindError struct {
	Op    string
	Kind  error
	Cause error
}

func (e *KindError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Cause)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind returns an error of the given kind raised by op because of cause.
func WrapKind(op string, kind, cause error) error {
	return &KindError{Op: op, Kind: kind, Cause: cause}
}

func errMissing(field string) error {
	return fmt.Errorf("missing %s", field)
}

func errNotPositive(field string) error {
	return fmt.Errorf("%s must be positive", field)
}

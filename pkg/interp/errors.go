package interp

import (
	"errors"
	"fmt"

	"github.com/raymyers/dryfart/pkg/native"
	"github.com/raymyers/dryfart/pkg/value"
)

var (
	// ErrType is an operand, condition or callee of the wrong type.
	ErrType = errors.New("type mismatch")
	// ErrBounds is an array index out of range.
	ErrBounds = value.ErrBounds
	// ErrRealEq is an equality comparison between reals.
	ErrRealEq = value.ErrRealEq
	// ErrCast is a cast outside the cast matrix or out of range.
	ErrCast = value.ErrCast
	// ErrArity is a call with the wrong number of arguments.
	ErrArity = errors.New("arity mismatch")
	// ErrNoField is a read of a missing table field.
	ErrNoField = errors.New("no such field")
	// ErrUndefined is a name that is not in scope.
	ErrUndefined = errors.New("undefined name")
	// ErrDivZero is an integer division or modulo by zero.
	ErrDivZero = errors.New("division by zero")
	// ErrControl is a break, return or exit with nowhere to go.
	ErrControl = errors.New("invalid control flow")
	// ErrStackOverflow is recursion deeper than MaxDepth.
	ErrStackOverflow = errors.New("stack overflow")
)

// RuntimeError is a failure of the running program. Kind is one of the
// sentinel errors above and is matched with errors.Is.
type RuntimeError struct {
	Kind error
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s: %s", e.Kind, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) error {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrap converts errors from the value and native packages into runtime errors.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	var kind error
	switch {
	case errors.Is(err, value.ErrBounds):
		kind = ErrBounds
	case errors.Is(err, value.ErrRealEq):
		kind = ErrRealEq
	case errors.Is(err, value.ErrCast):
		kind = ErrCast
	case errors.Is(err, native.ErrArity):
		kind = ErrArity
	case errors.Is(err, native.ErrUnknown):
		kind = ErrNoField
	case errors.Is(err, value.ErrElemType), errors.Is(err, native.ErrArgType):
		kind = ErrType
	default:
		return err
	}
	return &RuntimeError{Kind: kind, Msg: err.Error()}
}

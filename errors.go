package hostbuf

import (
	"errors"
	"fmt"
)

var (
	ErrAllocationFailed = errors.New("allocation failed")
	ErrInvalidUTF8      = errors.New("invalid utf-8")
	ErrRuntimeClosed    = errors.New("runtime is closed")
)

const invalidUTF8Message = "buffer contents are invalid UTF-8"

type ThrowKind int

const (
	ThrowError ThrowKind = iota
	ThrowTypeError
	ThrowRangeError
)

func (k ThrowKind) String() string {
	switch k {
	case ThrowTypeError:
		return "TypeError"
	case ThrowRangeError:
		return "RangeError"
	default:
		return "Error"
	}
}

// Throw is a failure that aborts the current activation. Code holding a
// *Throw returns it unchanged until Runtime.Enter hands it to the caller.
type Throw struct {
	Kind    ThrowKind
	Message string
	Err     error
}

func NewTypeError(msg string) *Throw {
	return &Throw{Kind: ThrowTypeError, Message: msg}
}

func NewRangeError(msg string) *Throw {
	return &Throw{Kind: ThrowRangeError, Message: msg}
}

func (t *Throw) Error() string {
	return t.Kind.String() + ": " + t.Message
}

func (t *Throw) Unwrap() error {
	return t.Err
}

// IndexError is the panic value for an out-of-range buffer index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("hostbuf: index out of range [%d] with length %d", e.Index, e.Len)
}

// ScopeError is the panic value for a handle used outside the scope that
// produced it, or a scope used out of order.
type ScopeError struct {
	Op     string
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("hostbuf: %s: %s", e.Op, e.Reason)
}

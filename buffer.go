package hostbuf

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Buffer is a handle to a host value known to be a buffer. It is a
// reference, not an owner: copies share the same storage, and all of them
// stop being usable when the owning scope closes.
type Buffer struct {
	scope *Scope
	raw   Raw
}

// NewBuffer asks the runtime for size zeroed bytes. The result is the generic
// handle; narrow it with Downcast[Buffer]. Allocation failure comes back as a
// *Throw wrapping ErrAllocationFailed.
func NewBuffer(s *Scope, size uint32) (Handle, error) {
	raw, _, err := s.allocate(KindBuffer, int(size))
	if err != nil {
		logrus.Warnf("runtime %s: buffer allocation of %d bytes failed: %v", s.rt.name, size, err)
		return Handle{}, s.throw(&Throw{
			Kind:    ThrowError,
			Message: "allocation failed",
			Err:     fmt.Errorf("%w: %w", ErrAllocationFailed, err),
		})
	}
	return Handle{scope: s, raw: raw}, nil
}

// Data queries the runtime for the buffer's current extent. Nothing is
// cached between calls.
func (b Buffer) Data() RawView {
	b.scope.mustBeOpen("buffer data")
	return RawView{b.scope.rt.liveExtent(b.raw)}
}

func (b Buffer) Len() int {
	return b.Data().Len()
}

// At returns byte i. An index outside the buffer panics with *IndexError.
func (b Buffer) At(i int) byte {
	return *b.Data().at(i)
}

// Set writes byte i. An index outside the buffer panics with *IndexError.
func (b Buffer) Set(i int, v byte) {
	*b.Data().at(i) = v
}

// Ptr returns a mutable reference to byte i in host memory.
func (b Buffer) Ptr(i int) *byte {
	return b.Data().at(i)
}

func (b Buffer) AsStr() (string, error) {
	return b.Data().AsSlice().AsStr()
}

// CheckStr is AsStr for callers that can only report a Throw.
func (b Buffer) CheckStr() (string, error) {
	str, err := b.AsStr()
	if err != nil {
		return "", b.scope.throw(NewTypeError(invalidUTF8Message))
	}
	return str, nil
}

func (b Buffer) ToRaw() Raw {
	return b.raw
}

func (b Buffer) Scope() *Scope {
	return b.scope
}

func (Buffer) IsTypeOf(other Value) bool {
	return isKind(other, KindBuffer)
}

func (Buffer) fromRaw(s *Scope, raw Raw) Buffer {
	return Buffer{scope: s, raw: raw}
}

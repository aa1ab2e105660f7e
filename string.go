package hostbuf

import "fmt"

// String is a UTF-8 string stored in host memory.
type String struct {
	scope *Scope
	raw   Raw
}

func NewString(s *Scope, v string) (Handle, error) {
	raw, obj, err := s.allocate(KindString, len(v))
	if err != nil {
		return Handle{}, s.throw(&Throw{
			Kind:    ThrowRangeError,
			Message: fmt.Sprintf("string of %d bytes could not be allocated", len(v)),
			Err:     fmt.Errorf("%w: %w", ErrAllocationFailed, err),
		})
	}
	copy(obj.data, v)
	return Handle{scope: s, raw: raw}, nil
}

// Value copies the string out of host memory.
func (str String) Value() string {
	str.scope.mustBeOpen("string value")
	return string(str.scope.rt.liveExtent(str.raw))
}

func (str String) Len() int {
	str.scope.mustBeOpen("string length")
	return len(str.scope.rt.liveExtent(str.raw))
}

func (str String) ToRaw() Raw {
	return str.raw
}

func (str String) Scope() *Scope {
	return str.scope
}

func (String) IsTypeOf(other Value) bool {
	return isKind(other, KindString)
}

func (String) fromRaw(s *Scope, raw Raw) String {
	return String{scope: s, raw: raw}
}

package hostbuf

import "fmt"

type Number struct {
	scope *Scope
	raw   Raw
}

func NewNumber(s *Scope, v float64) (Handle, error) {
	raw, obj, err := s.allocate(KindNumber, 0)
	if err != nil {
		return Handle{}, s.throw(&Throw{Kind: ThrowError, Message: "allocation failed", Err: fmt.Errorf("%w: %w", ErrAllocationFailed, err)})
	}
	obj.num = v
	return Handle{scope: s, raw: raw}, nil
}

func (n Number) Value() float64 {
	n.scope.mustBeOpen("number value")
	return n.scope.rt.mustLookup(n.raw).num
}

func (n Number) ToRaw() Raw {
	return n.raw
}

func (n Number) Scope() *Scope {
	return n.scope
}

func (Number) IsTypeOf(other Value) bool {
	return isKind(other, KindNumber)
}

func (Number) fromRaw(s *Scope, raw Raw) Number {
	return Number{scope: s, raw: raw}
}

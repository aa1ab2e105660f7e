package hostbuf

// Raw is the opaque host reference behind every handle. Only the runtime
// that issued it can interpret it.
type Raw uint64

type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuffer
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is any handle into a runtime: the generic Handle or one of the
// narrowed variants.
type Value interface {
	ToRaw() Raw
	Scope() *Scope
}

// Variant is implemented once per value kind. fromRaw does no checking and
// is only reached through Downcast or Escape, after IsTypeOf has agreed.
type Variant[V any] interface {
	Value
	IsTypeOf(other Value) bool
	fromRaw(s *Scope, raw Raw) V
}

// Downcast narrows v to variant V when the runtime reports v is tagged with
// V's kind. The returned handle shares v's raw reference and scope.
func Downcast[V Variant[V]](v Value) (V, bool) {
	var zero V
	if v == nil {
		return zero, false
	}

	s := v.Scope()
	if !zero.IsTypeOf(v) {
		if s != nil {
			s.rt.stats.downcastMisses.Add(1)
		}
		return zero, false
	}

	s.rt.stats.downcastHits.Add(1)
	return zero.fromRaw(s, v.ToRaw()), true
}

// Widen returns the generic form of any handle. It always succeeds.
func Widen(v Value) Handle {
	if v == nil {
		return Handle{}
	}
	return Handle{scope: v.Scope(), raw: v.ToRaw()}
}

// KindOf reports the kind the runtime has recorded for v, or KindInvalid if
// v's scope is gone or the slot was freed.
func KindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	s := v.Scope()
	if s == nil || s.closed {
		return KindInvalid
	}
	return s.rt.kindOf(v.ToRaw())
}

// Narrow returns v as its concrete variant: Buffer, Number or String. Values
// of unknown kind come back as a generic Handle.
func Narrow(v Value) Value {
	switch KindOf(v) {
	case KindBuffer:
		if b, ok := Downcast[Buffer](v); ok {
			return b
		}
	case KindNumber:
		if n, ok := Downcast[Number](v); ok {
			return n
		}
	case KindString:
		if str, ok := Downcast[String](v); ok {
			return str
		}
	}
	return Widen(v)
}

func isKind(v Value, kind Kind) bool {
	return KindOf(v) == kind
}

// Handle is a reference to a host value of unknown kind.
type Handle struct {
	scope *Scope
	raw   Raw
}

func (h Handle) ToRaw() Raw {
	return h.raw
}

func (h Handle) Scope() *Scope {
	return h.scope
}

// IsTypeOf is true for every live value: any value can be viewed as generic.
func (Handle) IsTypeOf(other Value) bool {
	return KindOf(other) != KindInvalid
}

func (Handle) fromRaw(s *Scope, raw Raw) Handle {
	return Handle{scope: s, raw: raw}
}

func (h Handle) Kind() Kind {
	return KindOf(h)
}

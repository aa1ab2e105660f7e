package hostbuf

import (
	"slices"

	"github.com/sirupsen/logrus"
)

// Scope is one activation in a runtime. Every handle borrows the scope it
// was created in, and values allocated in a scope are freed when it closes.
// A Scope must only be used from the goroutine running its activation.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	depth    int
	handles  []Raw
	shadowed bool
	closed   bool
}

func (rt *Runtime) openScope(parent *Scope) *Scope {
	s := &Scope{rt: rt, parent: parent}
	if parent != nil {
		s.depth = parent.depth + 1
		parent.shadowed = true
	}
	rt.stats.scopes.Add(1)
	rt.stats.liveScopes.Add(1)
	return s
}

func (s *Scope) Runtime() *Runtime {
	return s.rt
}

func (s *Scope) Depth() int {
	return s.depth
}

// Nested runs fn in a child scope. Values fn allocates are freed when it
// returns unless passed to Escape. The parent cannot allocate meanwhile.
func (s *Scope) Nested(fn func(inner *Scope) error) error {
	s.mustBeOpen("nested scope")
	if s.shadowed {
		panic(&ScopeError{Op: "nested scope", Reason: "scope already has an open nested scope"})
	}

	inner := s.rt.openScope(s)
	defer inner.close()
	return fn(inner)
}

// Escape moves ownership of v from s to its parent and returns the handle
// rebound to the parent, so it outlives s.
func Escape[V Variant[V]](s *Scope, v V) V {
	s.mustBeOpen("escape")
	if s.parent == nil {
		panic(&ScopeError{Op: "escape", Reason: "top-level scope has no parent"})
	}

	raw := v.ToRaw()
	i := slices.Index(s.handles, raw)
	if i < 0 {
		panic(&ScopeError{Op: "escape", Reason: "value is not owned by this scope"})
	}
	s.handles = slices.Delete(s.handles, i, i+1)
	s.parent.handles = append(s.parent.handles, raw)

	var zero V
	return zero.fromRaw(s.parent, raw)
}

func (s *Scope) allocate(kind Kind, size int) (Raw, *object, error) {
	s.mustBeOpen("allocate")
	if s.shadowed {
		panic(&ScopeError{Op: "allocate", Reason: "scope is shadowed by a nested scope"})
	}

	raw, obj, err := s.rt.heap.allocate(kind, size)
	if err != nil {
		return 0, nil, err
	}
	s.handles = append(s.handles, raw)
	return raw, obj, nil
}

func (s *Scope) throw(t *Throw) error {
	s.rt.stats.throws.Add(1)
	logrus.Debugf("runtime %s: scope %d throws %v", s.rt.name, s.depth, t)
	return t
}

func (s *Scope) mustBeOpen(op string) {
	if s == nil {
		panic(&ScopeError{Op: op, Reason: "handle was not created in a scope"})
	}
	if s.closed {
		panic(&ScopeError{Op: op, Reason: "scope is closed"})
	}
}

func (s *Scope) close() {
	for _, raw := range s.handles {
		s.rt.heap.free(raw)
	}
	logrus.Debugf("runtime %s: scope %d closed, released %d values", s.rt.name, s.depth, len(s.handles))

	s.handles = nil
	s.closed = true
	if s.parent != nil {
		s.parent.shadowed = false
	}
	s.rt.stats.liveScopes.Add(-1)
}

package singleflight

import (
	"sync"
)

type call struct {
	wg   sync.WaitGroup
	val  any
	err  error
	dups int
}

// Group collapses concurrent calls that share a key into one execution.
type Group struct {
	mutex sync.Mutex
	calls map[string]*call
}

// Do runs fn once per key at a time. Callers arriving while fn runs wait
// for it and get the same result; shared reports whether that happened.
func (g *Group) Do(key string, fn func() (any, error)) (val any, err error, shared bool) {
	g.mutex.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call)
	}
	if c, ok := g.calls[key]; ok {
		c.dups++
		g.mutex.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mutex.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mutex.Lock()
	delete(g.calls, key)
	shared = c.dups > 0
	g.mutex.Unlock()

	return c.val, c.err, shared
}

package hostbuf

import (
	"HostBuf/consistenthash"
	"fmt"
	"sync"
)

// Pool is a fixed set of runtimes. Sessions are pinned to one runtime by
// key so their activations always see the same heap.
type Pool struct {
	mutex    sync.RWMutex
	ring     *consistenthash.Map
	runtimes map[string]*Runtime
	order    []string
}

func NewPool(prefix string, size int, opts RuntimeOptions) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	p := &Pool{
		ring:     consistenthash.New(),
		runtimes: make(map[string]*Runtime, size),
	}
	for i := range size {
		name := fmt.Sprintf("%s-%d", prefix, i)
		p.runtimes[name] = NewRuntime(name, opts)
		p.order = append(p.order, name)
	}
	p.ring.Add(p.order...)
	return p, nil
}

// Pick returns the runtime that owns key.
func (p *Pool) Pick(key string) *Runtime {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if name, ok := p.ring.Get(key); ok {
		return p.runtimes[name]
	}
	return nil
}

func (p *Pool) Runtimes() []*Runtime {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]*Runtime, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.runtimes[name])
	}
	return out
}

// Distribution reports the share of Pick calls each runtime received.
func (p *Pool) Distribution() map[string]float64 {
	return p.ring.Stats()
}

func (p *Pool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, name := range p.order {
		p.ring.Remove(name)
		p.runtimes[name].Close()
	}
	p.runtimes = make(map[string]*Runtime)
	p.order = nil
}

package hostbuf

import (
	"HostBuf/store"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	runtimesMutex sync.RWMutex
	runtimes      = make(map[string]*Runtime)
)

type RuntimeOptions struct {
	HeapType    store.HeapType
	Backing     store.Backing
	MaxBytes    int64
	BucketCount uint16
}

var DefaultRuntimeOptions = RuntimeOptions{
	HeapType:    store.Table,
	Backing:     store.GoHeap,
	MaxBytes:    64 * 1024 * 1024, // 64MB
	BucketCount: 16,
}

// Runtime owns host memory and answers the three host queries: allocate,
// live extent and type tag. Activations are serialised by mutex.
type Runtime struct {
	name   string
	opts   RuntimeOptions
	heap   *Heap
	mutex  sync.Mutex
	closed atomic.Bool
	stats  runtimeStats
}

type runtimeStats struct {
	activations    atomic.Int64
	scopes         atomic.Int64
	liveScopes     atomic.Int64
	throws         atomic.Int64
	downcastHits   atomic.Int64
	downcastMisses atomic.Int64
}

func NewRuntime(name string, opts RuntimeOptions) *Runtime {
	rt := &Runtime{
		name: name,
		opts: opts,
		heap: newHeap(opts),
	}

	runtimesMutex.Lock()
	defer runtimesMutex.Unlock()

	if old, exists := runtimes[name]; exists {
		logrus.Warnf("Runtime with name %s already exists, will be replaced", name)
		go old.Close()
	}

	runtimes[name] = rt
	return rt
}

func GetRuntime(name string) *Runtime {
	runtimesMutex.RLock()
	defer runtimesMutex.RUnlock()
	return runtimes[name]
}

func (rt *Runtime) Name() string {
	return rt.name
}

// Enter runs fn as a top-level activation. Values allocated during fn are
// freed when it returns. A *Throw returned by fn comes back unchanged.
// Enter must not be called from inside another activation of rt.
func (rt *Runtime) Enter(fn func(s *Scope) error) error {
	if rt.closed.Load() {
		return ErrRuntimeClosed
	}

	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if rt.closed.Load() {
		return ErrRuntimeClosed
	}

	rt.stats.activations.Add(1)
	s := rt.openScope(nil)
	defer s.close()
	return fn(s)
}

// liveExtent is the host's answer to "where is this value's storage now".
func (rt *Runtime) liveExtent(raw Raw) []byte {
	return rt.mustLookup(raw).data
}

func (rt *Runtime) mustLookup(raw Raw) *object {
	obj, ok := rt.heap.lookup(raw)
	if !ok {
		panic(&ScopeError{Op: "lookup", Reason: "handle refers to a freed value"})
	}
	return obj
}

func (rt *Runtime) kindOf(raw Raw) Kind {
	obj, ok := rt.heap.lookup(raw)
	if !ok {
		return KindInvalid
	}
	return obj.kind
}

// Close waits for the running activation, then frees all host memory.
func (rt *Runtime) Close() {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if !rt.closed.CompareAndSwap(false, true) {
		return
	}
	rt.heap.Close()

	runtimesMutex.Lock()
	if runtimes[rt.name] == rt {
		delete(runtimes, rt.name)
	}
	runtimesMutex.Unlock()
}

func (rt *Runtime) close() {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if !rt.closed.CompareAndSwap(false, true) {
		return
	}
	rt.heap.Close()
}

func ListRuntimes() []string {
	runtimesMutex.RLock()
	defer runtimesMutex.RUnlock()

	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}

	return names
}

func DestroyRuntime(name string) bool {
	runtimesMutex.Lock()
	rt, exists := runtimes[name]
	if exists {
		delete(runtimes, name)
	}
	runtimesMutex.Unlock()

	if exists {
		rt.close()
	}
	return exists
}

func DestroyAllRuntimes() {
	runtimesMutex.Lock()
	all := make([]*Runtime, 0, len(runtimes))
	for name, rt := range runtimes {
		all = append(all, rt)
		delete(runtimes, name)
	}
	runtimesMutex.Unlock()

	for _, rt := range all {
		rt.close()
	}
}

func (rt *Runtime) Stats() map[string]any {
	stats := map[string]any{
		"name":            rt.name,
		"closed":          rt.closed.Load(),
		"activations":     rt.stats.activations.Load(),
		"scopes":          rt.stats.scopes.Load(),
		"live_scopes":     rt.stats.liveScopes.Load(),
		"throws":          rt.stats.throws.Load(),
		"downcast_hits":   rt.stats.downcastHits.Load(),
		"downcast_misses": rt.stats.downcastMisses.Load(),
	}

	total := stats["downcast_hits"].(int64) + stats["downcast_misses"].(int64)
	if total > 0 {
		stats["downcast_hit_rate"] = float64(stats["downcast_hits"].(int64)) / float64(total)
	}

	for k, v := range rt.heap.Stats() {
		stats["heap_"+k] = v
	}

	return stats
}

package hostbuf

import (
	"HostBuf/store"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// object is one slot of host memory.
type object struct {
	kind Kind
	data []byte
	num  float64
}

func (o *object) Len() int {
	if o.kind == KindNumber {
		return 8
	}
	return len(o.data)
}

// Heap is the allocation authority of a runtime. It is initialised on first
// use and hands out Raw ids that are never reused.
type Heap struct {
	mutex       sync.Mutex
	store       store.Store
	alloc       store.Allocator
	opts        RuntimeOptions
	nextID      atomic.Uint64
	allocs      atomic.Int64
	failures    atomic.Int64
	frees       atomic.Int64
	initialized atomic.Bool
	closed      atomic.Bool
}

func newHeap(opts RuntimeOptions) *Heap {
	return &Heap{
		opts: opts,
	}
}

func (h *Heap) ensureInitialized() {
	if h.initialized.Load() {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.initialized.Load() {
		alloc, err := store.NewAllocator(h.opts.Backing)
		if err != nil {
			logrus.Warnf("backing %q unavailable, using go heap: %v", h.opts.Backing, err)
			alloc, _ = store.NewAllocator(store.GoHeap)
		}
		h.alloc = alloc
		h.store = store.NewStore(h.opts.HeapType, store.Options{
			MaxBytes:    h.opts.MaxBytes,
			BucketCount: h.opts.BucketCount,
		})

		h.initialized.Store(true)
	}
}

func (h *Heap) allocate(kind Kind, size int) (Raw, *object, error) {
	if h.closed.Load() {
		return 0, nil, ErrRuntimeClosed
	}

	h.ensureInitialized()

	if h.opts.MaxBytes > 0 && int64(size) > h.opts.MaxBytes {
		h.failures.Add(1)
		return 0, nil, fmt.Errorf("%d bytes exceeds heap budget of %d: %w", size, h.opts.MaxBytes, store.ErrOutOfMemory)
	}

	obj := &object{kind: kind}
	if kind != KindNumber {
		data, err := h.alloc.Alloc(size)
		if err != nil {
			h.failures.Add(1)
			return 0, nil, err
		}
		obj.data = data
	}

	id := h.nextID.Add(1)
	if err := h.store.Put(id, obj); err != nil {
		h.release(obj)
		h.failures.Add(1)
		return 0, nil, err
	}

	h.allocs.Add(1)
	return Raw(id), obj, nil
}

func (h *Heap) lookup(raw Raw) (*object, bool) {
	if h.closed.Load() || !h.initialized.Load() {
		return nil, false
	}

	val, ok := h.store.Get(uint64(raw))
	if !ok {
		return nil, false
	}
	obj, ok := val.(*object)
	return obj, ok
}

func (h *Heap) free(raw Raw) bool {
	if !h.initialized.Load() {
		return false
	}

	val, ok := h.store.Delete(uint64(raw))
	if !ok {
		return false
	}
	h.release(val.(*object))
	h.frees.Add(1)
	return true
}

func (h *Heap) release(obj *object) {
	if obj.data == nil {
		return
	}
	if err := h.alloc.Free(obj.data); err != nil {
		logrus.Errorf("failed to release %d bytes: %v", len(obj.data), err)
	}
	obj.data = nil
}

func (h *Heap) Len() int {
	if h.closed.Load() || !h.initialized.Load() {
		return 0
	}
	return h.store.Len()
}

func (h *Heap) UsedBytes() int64 {
	if h.closed.Load() || !h.initialized.Load() {
		return 0
	}
	return h.store.UsedBytes()
}

func (h *Heap) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	if h.initialized.Load() {
		h.store.Range(func(id uint64, val store.Value) bool {
			h.release(val.(*object))
			return true
		})
		h.store.Close()
	}
}

func (h *Heap) Stats() map[string]any {
	stats := map[string]any{
		"initialized": h.initialized.Load(),
		"closed":      h.closed.Load(),
		"allocs":      h.allocs.Load(),
		"failures":    h.failures.Load(),
		"frees":       h.frees.Load(),
	}

	if h.initialized.Load() {
		stats["live"] = int64(h.Len())
		stats["used_bytes"] = h.UsedBytes()
		stats["backing"] = string(h.alloc.Backing())

		total := stats["allocs"].(int64) + stats["failures"].(int64)
		if total > 0 {
			stats["failure_rate"] = float64(stats["failures"].(int64)) / float64(total)
		} else {
			stats["failure_rate"] = 0.0
		}
	}

	return stats
}

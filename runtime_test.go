package hostbuf

import (
	"HostBuf/store"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeRegistry(t *testing.T) {
	rt := NewRuntime("registry-a", DefaultRuntimeOptions)
	assert.Same(t, rt, GetRuntime("registry-a"))
	assert.Contains(t, ListRuntimes(), "registry-a")

	assert.True(t, DestroyRuntime("registry-a"))
	assert.False(t, DestroyRuntime("registry-a"))
	assert.Nil(t, GetRuntime("registry-a"))
	assert.ErrorIs(t, rt.Enter(func(*Scope) error { return nil }), ErrRuntimeClosed)
}

func TestRuntimeReplace(t *testing.T) {
	first := NewRuntime("registry-b", DefaultRuntimeOptions)
	second := NewRuntime("registry-b", DefaultRuntimeOptions)
	t.Cleanup(second.Close)

	assert.Same(t, second, GetRuntime("registry-b"))
	assert.Eventually(t, func() bool {
		return first.Stats()["closed"] == true
	}, time.Second, 10*time.Millisecond)
}

func TestRuntimeCloseRemovesOnlyItself(t *testing.T) {
	first := NewRuntime("registry-c", DefaultRuntimeOptions)
	first.Close()
	assert.Nil(t, GetRuntime("registry-c"))

	second := NewRuntime("registry-c", DefaultRuntimeOptions)
	first.Close()
	assert.Same(t, second, GetRuntime("registry-c"))
	second.Close()
}

func TestDestroyAllRuntimes(t *testing.T) {
	a := NewRuntime("registry-d1", DefaultRuntimeOptions)
	b := NewRuntime("registry-d2", DefaultRuntimeOptions)
	DestroyAllRuntimes()

	assert.Empty(t, ListRuntimes())
	assert.ErrorIs(t, a.Enter(func(*Scope) error { return nil }), ErrRuntimeClosed)
	assert.ErrorIs(t, b.Enter(func(*Scope) error { return nil }), ErrRuntimeClosed)
}

func TestRuntimeStats(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	before := rt.Stats()
	assert.Equal(t, false, before["heap_initialized"])

	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 10)
		assert.Equal(t, int64(1), rt.Stats()["heap_live"])
		assert.Equal(t, int64(10), rt.Stats()["heap_used_bytes"])
		return s.Nested(func(n *Scope) error {
			_, ok := Downcast[Number](b)
			assert.False(t, ok)
			return nil
		})
	}))

	stats := rt.Stats()
	assert.Equal(t, t.Name(), stats["name"])
	assert.Equal(t, int64(1), stats["activations"])
	assert.Equal(t, int64(2), stats["scopes"])
	assert.Equal(t, int64(0), stats["live_scopes"])
	assert.Equal(t, int64(1), stats["downcast_hits"])
	assert.Equal(t, int64(1), stats["downcast_misses"])
	assert.Equal(t, 0.5, stats["downcast_hit_rate"])
	assert.Equal(t, int64(1), stats["heap_allocs"])
	assert.Equal(t, int64(1), stats["heap_frees"])
	assert.Equal(t, int64(0), stats["heap_live"])
	assert.Equal(t, string(store.GoHeap), stats["heap_backing"])
}

func TestRuntimeSerialisesActivations(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)

	var (
		wg     sync.WaitGroup
		mutex  sync.Mutex
		active int
		peak   int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.Enter(func(s *Scope) error {
				mutex.Lock()
				active++
				peak = max(peak, active)
				mutex.Unlock()

				b := mustBuffer(t, s, 32)
				for i := range b.Len() {
					b.Set(i, byte(i))
				}

				mutex.Lock()
				active--
				mutex.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	assert.Equal(t, int64(8), rt.Stats()["activations"])
}

func TestRuntimeCloseFreesMmapStorage(t *testing.T) {
	opts := DefaultRuntimeOptions
	opts.Backing = store.Mmap
	rt := NewRuntime(t.Name(), opts)

	require.NoError(t, rt.Enter(func(s *Scope) error {
		mustBuffer(t, s, 8192).Set(8191, 1)
		return nil
	}))
	rt.Close()
	rt.Close()

	stats := rt.Stats()
	assert.Equal(t, true, stats["closed"])
	assert.Equal(t, true, stats["heap_closed"])
}

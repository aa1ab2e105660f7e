package hostbuf

import (
	"HostBuf/store"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts RuntimeOptions) *Runtime {
	t.Helper()
	rt := NewRuntime(t.Name(), opts)
	t.Cleanup(rt.Close)
	return rt
}

// allRuntimeOptions covers every slot table and backing combination.
func allRuntimeOptions() map[string]RuntimeOptions {
	out := make(map[string]RuntimeOptions)
	for _, ht := range []store.HeapType{store.Table, store.Sharded} {
		for _, backing := range []store.Backing{store.GoHeap, store.Mmap} {
			opts := DefaultRuntimeOptions
			opts.HeapType = ht
			opts.Backing = backing
			out[string(ht)+"/"+string(backing)] = opts
		}
	}
	return out
}

func mustBuffer(t *testing.T, s *Scope, size uint32) Buffer {
	t.Helper()
	h, err := NewBuffer(s, size)
	require.NoError(t, err)
	b, ok := Downcast[Buffer](h)
	require.True(t, ok)
	return b
}

package hostbuf

import (
	"testing"
	"unicode/utf8"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAllocationLength(t *testing.T) {
	for name, opts := range allRuntimeOptions() {
		t.Run(name, func(t *testing.T) {
			rt := newTestRuntime(t, opts)
			err := rt.Enter(func(s *Scope) error {
				for _, size := range []uint32{0, 1, 5, 4096, 70000} {
					b := mustBuffer(t, s, size)
					assert.Equal(t, int(size), b.Len())
					assert.Equal(t, int(size), b.Data().Len())
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestBufferZeroInitialised(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 64)
		for i := range b.Len() {
			assert.Zero(t, b.At(i))
		}
		return nil
	}))
}

func TestBufferWriteReadBack(t *testing.T) {
	for name, opts := range allRuntimeOptions() {
		t.Run(name, func(t *testing.T) {
			rt := newTestRuntime(t, opts)
			require.NoError(t, rt.Enter(func(s *Scope) error {
				b := mustBuffer(t, s, 5)
				for i, v := range []byte{1, 2, 3, 4, 5} {
					b.Set(i, v)
				}

				got := make([]byte, b.Len())
				for i := range got {
					got[i] = b.At(i)
				}
				assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
				return nil
			}))
		})
	}
}

func TestBufferIndexMatchesRawView(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 16)
		copy(b.Data().AsMutSlice(), "0123456789abcdef")

		snapshot := b.Data().AsSlice()
		for i := range snapshot.Len() {
			assert.Equal(t, snapshot.At(i), b.At(i))
		}
		return nil
	}))
}

func TestBufferPtrWritesThrough(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 3)
		p := b.Ptr(1)
		*p = 0x7f
		assert.Equal(t, byte(0x7f), b.At(1))
		assert.Equal(t, []byte{0, 0x7f, 0}, b.Data().AsSlice().Clone())
		return nil
	}))
}

func TestBufferCopiesShareStorage(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 2)
		c := b
		c.Set(0, 9)
		assert.Equal(t, byte(9), b.At(0))
		return nil
	}))
}

func TestBufferIndexOutOfRange(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 4)
		for _, i := range []int{4, 5, 1 << 20, -1} {
			assert.PanicsWithError(t, (&IndexError{Index: i, Len: 4}).Error(), func() {
				b.At(i)
			})
			assert.PanicsWithError(t, (&IndexError{Index: i, Len: 4}).Error(), func() {
				b.Set(i, 1)
			})
			assert.Panics(t, func() { b.Ptr(i) })
		}

		empty := mustBuffer(t, s, 0)
		assert.Panics(t, func() { empty.At(0) })
		return nil
	}))
}

func TestBufferAsStr(t *testing.T) {
	inputs := []string{"", "hello", "héllo wörld", "日本語", "emoji 🚀"}

	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		for _, in := range inputs {
			b := mustBuffer(t, s, uint32(len(in)))
			copy(b.Data().AsMutSlice(), in)

			str, err := b.AsStr()
			require.NoError(t, err)
			assert.Equal(t, in, str)

			str, err = b.CheckStr()
			require.NoError(t, err)
			assert.Equal(t, in, str)
		}
		return nil
	}))
}

func TestBufferAsStrIsZeroCopy(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 3)
		copy(b.Data().AsMutSlice(), "abc")

		str, err := b.AsStr()
		require.NoError(t, err)
		assert.Same(t, b.Data().Ptr(), unsafe.StringData(str))
		return nil
	}))
}

func TestBufferInvalidUTF8(t *testing.T) {
	invalid := [][]byte{
		{0xFF, 0xFE, 0xFD},
		{'o', 'k', 0xC3},
		{0xE2, 0x28, 0xA1},
		{0xED, 0xA0, 0x80},
	}

	rt := newTestRuntime(t, DefaultRuntimeOptions)
	err := rt.Enter(func(s *Scope) error {
		for _, in := range invalid {
			require.False(t, utf8.Valid(in))
			b := mustBuffer(t, s, uint32(len(in)))
			for i, c := range in {
				b.Set(i, c)
			}

			_, err := b.AsStr()
			assert.ErrorIs(t, err, ErrInvalidUTF8)

			_, err = b.CheckStr()
			var th *Throw
			require.ErrorAs(t, err, &th)
			assert.Equal(t, ThrowTypeError, th.Kind)
			assert.Equal(t, "buffer contents are invalid UTF-8", th.Message)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(invalid)), rt.Stats()["throws"])
}

func TestBufferCheckStrThrowLeavesActivation(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	err := rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 3)
		copy(b.Data().AsMutSlice(), []byte{0xFF, 0xFE, 0xFD})
		if _, err := b.CheckStr(); err != nil {
			return err
		}
		t.Fatal("CheckStr accepted invalid UTF-8")
		return nil
	})

	var th *Throw
	require.ErrorAs(t, err, &th)
	assert.Equal(t, "TypeError: buffer contents are invalid UTF-8", err.Error())
}

func TestBufferAllocationFailure(t *testing.T) {
	opts := DefaultRuntimeOptions
	opts.MaxBytes = 1024
	rt := newTestRuntime(t, opts)

	err := rt.Enter(func(s *Scope) error {
		mustBuffer(t, s, 1000)

		_, err := NewBuffer(s, 100)
		return err
	})

	var th *Throw
	require.ErrorAs(t, err, &th)
	assert.Equal(t, ThrowError, th.Kind)
	assert.Equal(t, "allocation failed", th.Message)
	assert.ErrorIs(t, err, ErrAllocationFailed)

	stats := rt.Stats()
	assert.Equal(t, int64(1), stats["heap_failures"])
	assert.Equal(t, int64(1), stats["throws"])
}

func TestBufferHugeAllocationRejectedBeforeBacking(t *testing.T) {
	opts := DefaultRuntimeOptions
	opts.Backing = "mmap"
	opts.MaxBytes = 1 << 20
	rt := newTestRuntime(t, opts)

	err := rt.Enter(func(s *Scope) error {
		_, err := NewBuffer(s, ^uint32(0))
		return err
	})
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

package hostbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawViewForms(t *testing.T) {
	backing := []byte("host")
	v := RawView{backing}

	assert.Equal(t, 4, v.Len())
	assert.Same(t, &backing[0], v.Ptr())

	ro := v.AsSlice()
	rw := v.AsMutSlice()
	rw[0] = 'H'
	assert.Equal(t, byte('H'), ro.At(0))
	assert.Equal(t, "Host", ro.String())
}

func TestRawViewEmpty(t *testing.T) {
	v := RawView{[]byte{}}
	assert.Nil(t, v.Ptr())
	assert.Zero(t, v.Len())

	str, err := v.AsSlice().AsStr()
	require.NoError(t, err)
	assert.Empty(t, str)
}

func TestByteViewCloneIsIndependent(t *testing.T) {
	backing := []byte{1, 2, 3}
	clone := RawView{backing}.AsSlice().Clone()
	backing[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, clone)
}

func TestByteViewAtOutOfRange(t *testing.T) {
	ro := RawView{[]byte{1}}.AsSlice()
	assert.PanicsWithError(t, "hostbuf: index out of range [1] with length 1", func() {
		ro.At(1)
	})
}

func TestRawViewIsNotCached(t *testing.T) {
	rt := newTestRuntime(t, DefaultRuntimeOptions)
	require.NoError(t, rt.Enter(func(s *Scope) error {
		b := mustBuffer(t, s, 2)
		first := b.Data()

		// swap the backing bytes behind the runtime's back; a fresh query sees it
		obj := rt.mustLookup(b.ToRaw())
		orig := obj.data
		obj.data = []byte{5, 6, 7}
		defer func() { obj.data = orig }()

		assert.Equal(t, 2, first.Len())
		assert.Equal(t, 3, b.Data().Len())
		assert.Equal(t, byte(7), b.At(2))
		return nil
	}))
}

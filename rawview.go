package hostbuf

import (
	"unicode/utf8"
	"unsafe"
)

// RawView is the live extent of a host value's storage as reported by the
// runtime at the moment of the query. It aliases host memory and is only
// valid while the scope that owns the value is open.
type RawView struct {
	b []byte
}

func (v RawView) Len() int {
	return len(v.b)
}

// Ptr returns the start address of the extent, nil when it is empty.
func (v RawView) Ptr() *byte {
	if len(v.b) == 0 {
		return nil
	}
	return unsafe.SliceData(v.b)
}

func (v RawView) AsSlice() ByteView {
	return ByteView{v.b}
}

func (v RawView) AsMutSlice() []byte {
	return v.b
}

func (v RawView) at(i int) *byte {
	if i < 0 || i >= len(v.b) {
		panic(&IndexError{Index: i, Len: len(v.b)})
	}
	return &v.b[i]
}

// ByteView is the immutable form of a RawView.
type ByteView struct {
	b []byte
}

func (b ByteView) Len() int {
	return len(b.b)
}

func (b ByteView) At(i int) byte {
	return *RawView{b.b}.at(i)
}

// String copies the bytes out of host memory.
func (b ByteView) String() string {
	return string(b.b)
}

func (b ByteView) Clone() []byte {
	return CloneBytes(b.b)
}

// AsStr validates the whole view as UTF-8 and returns a string that aliases
// host memory without copying.
func (b ByteView) AsStr() (string, error) {
	if !utf8.Valid(b.b) {
		return "", ErrInvalidUTF8
	}
	return unsafe.String(unsafe.SliceData(b.b), len(b.b)), nil
}

func CloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

//go:build !unix

package store

func newMmapAllocator() (Allocator, error) {
	return nil, ErrUnsupportedBacking
}

package store

import "fmt"

type Backing string

const (
	GoHeap Backing = "go"
	Mmap   Backing = "mmap"
)

// Allocator hands out the bytes behind host values. Memory from an
// Allocator is zeroed and must be returned through Free exactly once.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte) error
	Backing() Backing
}

func NewAllocator(backing Backing) (Allocator, error) {
	switch backing {
	case GoHeap, "":
		return goHeapAllocator{}, nil
	case Mmap:
		return newMmapAllocator()
	default:
		return nil, fmt.Errorf("unknown backing %q", backing)
	}
}

type goHeapAllocator struct{}

func (goHeapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}
	return make([]byte, size), nil
}

func (goHeapAllocator) Free([]byte) error {
	return nil
}

func (goHeapAllocator) Backing() Backing {
	return GoHeap
}

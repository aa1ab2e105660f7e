//go:build unix

package store

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapAllocator maps anonymous private pages outside the Go heap, so the
// garbage collector never owns buffer storage.
type mmapAllocator struct{}

func newMmapAllocator() (Allocator, error) {
	return mmapAllocator{}, nil
}

func (mmapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}

	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

func (mmapAllocator) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap %d bytes: %w", len(b), err)
	}
	return nil
}

func (mmapAllocator) Backing() Backing {
	return Mmap
}

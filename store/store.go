package store

import "errors"

var (
	ErrOutOfMemory        = errors.New("heap budget exhausted")
	ErrSlotExists         = errors.New("slot already allocated")
	ErrUnsupportedBacking = errors.New("backing not supported on this platform")
)

type Value interface {
	Len() int
}

// Store is a slot table keyed by host handle id. Unlike a cache it never
// evicts: a Put that would exceed MaxBytes fails with ErrOutOfMemory.
type Store interface {
	Get(id uint64) (Value, bool)
	Put(id uint64, val Value) error
	Delete(id uint64) (Value, bool)
	Range(fn func(id uint64, val Value) bool)
	Len() int
	UsedBytes() int64
	Clear()
	Close()
}

type HeapType string

const (
	Table   HeapType = "table"
	Sharded HeapType = "sharded"
)

type Options struct {
	MaxBytes    int64
	BucketCount uint16
}

func NewStore(heapType HeapType, opts Options) Store {
	switch heapType {
	case Table:
		return newTableStore(opts)
	case Sharded:
		return newShardedStore(opts)
	default:
		return newTableStore(opts)
	}
}

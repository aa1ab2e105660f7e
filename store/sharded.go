package store

import (
	"sync"
	"sync/atomic"
)

// mixID spreads sequential handle ids across buckets.
func mixID(id uint64) uint32 {
	id ^= id >> 33
	id *= 0xff51afd7ed558ccd
	id ^= id >> 33
	return uint32(id)
}

func maskOfNextPowOf2(cap uint16) uint32 {
	if cap > 0 && cap&(cap-1) == 0 {
		return uint32(cap - 1)
	}
	cap |= (cap >> 1)
	cap |= (cap >> 2)
	cap |= (cap >> 4)
	return uint32(cap | (cap >> 8))
}

type shardedStore struct {
	locks     []sync.RWMutex
	buckets   []map[uint64]Value
	mask      uint32
	maxBytes  int64
	usedBytes atomic.Int64
	count     atomic.Int64
}

func newShardedStore(opts Options) *shardedStore {
	mask := maskOfNextPowOf2(opts.BucketCount)
	s := &shardedStore{
		locks:    make([]sync.RWMutex, mask+1),
		buckets:  make([]map[uint64]Value, mask+1),
		mask:     mask,
		maxBytes: opts.MaxBytes,
	}
	for i := range s.buckets {
		s.buckets[i] = make(map[uint64]Value)
	}
	return s
}

func (s *shardedStore) Get(id uint64) (Value, bool) {
	idx := mixID(id) & s.mask
	s.locks[idx].RLock()
	defer s.locks[idx].RUnlock()

	val, ok := s.buckets[idx][id]
	return val, ok
}

func (s *shardedStore) Put(id uint64, val Value) error {
	idx := mixID(id) & s.mask
	s.locks[idx].Lock()
	defer s.locks[idx].Unlock()

	if _, ok := s.buckets[idx][id]; ok {
		return ErrSlotExists
	}
	if !s.reserve(int64(val.Len())) {
		return ErrOutOfMemory
	}

	s.buckets[idx][id] = val
	s.count.Add(1)
	return nil
}

// reserve claims size bytes of the shared budget across all buckets.
func (s *shardedStore) reserve(size int64) bool {
	for {
		used := s.usedBytes.Load()
		if s.maxBytes > 0 && used+size > s.maxBytes {
			return false
		}
		if s.usedBytes.CompareAndSwap(used, used+size) {
			return true
		}
	}
}

func (s *shardedStore) Delete(id uint64) (Value, bool) {
	idx := mixID(id) & s.mask
	s.locks[idx].Lock()
	defer s.locks[idx].Unlock()

	val, ok := s.buckets[idx][id]
	if !ok {
		return nil, false
	}
	delete(s.buckets[idx], id)
	s.usedBytes.Add(-int64(val.Len()))
	s.count.Add(-1)
	return val, true
}

func (s *shardedStore) Range(fn func(id uint64, val Value) bool) {
	for i := range s.buckets {
		s.locks[i].RLock()
		snapshot := make(map[uint64]Value, len(s.buckets[i]))
		for id, val := range s.buckets[i] {
			snapshot[id] = val
		}
		s.locks[i].RUnlock()

		for id, val := range snapshot {
			if !fn(id, val) {
				return
			}
		}
	}
}

func (s *shardedStore) Len() int {
	return int(s.count.Load())
}

func (s *shardedStore) UsedBytes() int64 {
	return s.usedBytes.Load()
}

func (s *shardedStore) Clear() {
	for i := range s.buckets {
		s.locks[i].Lock()
		for id, val := range s.buckets[i] {
			delete(s.buckets[i], id)
			s.usedBytes.Add(-int64(val.Len()))
			s.count.Add(-1)
		}
		s.locks[i].Unlock()
	}
}

func (s *shardedStore) Close() {
	s.Clear()
}

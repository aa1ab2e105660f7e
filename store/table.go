package store

import (
	"container/list"
	"sync"
)

type tableStore struct {
	mutex     sync.RWMutex
	list      *list.List
	items     map[uint64]*list.Element
	maxBytes  int64
	usedBytes int64
}

type tableEntry struct {
	id    uint64
	value Value
}

func newTableStore(opts Options) *tableStore {
	return &tableStore{
		list:     list.New(),
		items:    make(map[uint64]*list.Element),
		maxBytes: opts.MaxBytes,
	}
}

func (t *tableStore) Get(id uint64) (Value, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	ele, ok := t.items[id]
	if !ok {
		return nil, false
	}
	return ele.Value.(*tableEntry).value, true
}

func (t *tableStore) Put(id uint64, val Value) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.items[id]; ok {
		return ErrSlotExists
	}

	size := int64(val.Len())
	if t.maxBytes > 0 && t.usedBytes+size > t.maxBytes {
		return ErrOutOfMemory
	}

	// allocation order is kept so Range visits the oldest slot first
	ele := t.list.PushBack(&tableEntry{id, val})
	t.items[id] = ele
	t.usedBytes += size
	return nil
}

func (t *tableStore) Delete(id uint64) (Value, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ele, ok := t.items[id]
	if !ok {
		return nil, false
	}
	entry := t.removeElement(ele)
	return entry.value, true
}

func (t *tableStore) Range(fn func(id uint64, val Value) bool) {
	t.mutex.RLock()
	entries := make([]*tableEntry, 0, t.list.Len())
	for ele := t.list.Front(); ele != nil; ele = ele.Next() {
		entries = append(entries, ele.Value.(*tableEntry))
	}
	t.mutex.RUnlock()

	for _, entry := range entries {
		if !fn(entry.id, entry.value) {
			return
		}
	}
}

func (t *tableStore) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.list.Len()
}

func (t *tableStore) UsedBytes() int64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.usedBytes
}

func (t *tableStore) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.list.Init()
	t.items = make(map[uint64]*list.Element)
	t.usedBytes = 0
}

func (t *tableStore) Close() {
	t.Clear()
}

func (t *tableStore) removeElement(ele *list.Element) *tableEntry {
	entry := ele.Value.(*tableEntry)
	t.list.Remove(ele)
	delete(t.items, entry.id)
	t.usedBytes -= int64(entry.value.Len())
	return entry
}

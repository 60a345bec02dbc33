package clipcache

import (
	"container/list"
	"sync"
)

// Memory is the in-memory LRU tier.
type Memory struct {
	capacity int64

	mu       sync.Mutex
	size     int64
	items    map[string]*list.Element
	eviction *list.List
	stats    Stats
}

type memEntry struct {
	key  string
	data []byte
}

// NewMemory creates a memory tier holding at most capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	m.eviction.MoveToFront(elem)
	m.stats.Hits++
	return elem.Value.(*memEntry).data, true
}

func (m *Memory) Put(key string, data []byte) error {
	size := int64(len(data))
	if size > m.capacity {
		return ErrTooLarge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memEntry)
		m.size += size - int64(len(entry.data))
		entry.data = data
		m.eviction.MoveToFront(elem)
		return nil
	}

	for m.size+size > m.capacity && m.eviction.Len() > 0 {
		m.evictOldestLocked()
	}

	m.items[key] = m.eviction.PushFront(&memEntry{key: key, data: data})
	m.size += size
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.eviction.Init()
	m.size = 0
	return nil
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Clips = len(m.items)
	s.Size = m.size
	s.Capacity = m.capacity
	return s
}

func (m *Memory) evictOldestLocked() {
	elem := m.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memEntry)
	m.eviction.Remove(elem)
	delete(m.items, entry.key)
	m.size -= int64(len(entry.data))
	m.stats.Evictions++
}

package cache

import (
	"container/list"
	"context"
	"sync"
)

var _ Tier = (*MemoryTier)(nil)

// MemoryTier is a bounded in-process LRU tier
type MemoryTier struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[Key]*list.Element
}

func NewMemoryTier(capacity int) *MemoryTier {
	return &MemoryTier{
		capacity: max(capacity, 1),
		order:    list.New(),
		items:    make(map[Key]*list.Element),
	}
}

func (m *MemoryTier) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return Entry{}, false, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(Entry), true, nil
}

func (m *MemoryTier) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[entry.Key]; ok {
		el.Value = entry
		m.order.MoveToFront(el)
		return nil
	}

	m.items[entry.Key] = m.order.PushFront(entry)
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(Entry).Key)
	}
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryTier) DeleteFile(_ context.Context, projectID, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, el := range m.items {
		if key.ProjectID == projectID && key.Filename == filename {
			m.order.Remove(el)
			delete(m.items, key)
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryTier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

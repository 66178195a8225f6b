package cache

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// memoryCache is the hot tier: a capacity-bounded map with LRU
// eviction. Not safe for concurrent use, the owning Cache serializes
// access.
type memoryCache struct {
	capacity int
	entries  map[string]*Entry
	order    []string
}

func newMemoryCache(capacity int) *memoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memoryCache{
		capacity: capacity,
		entries:  make(map[string]*Entry, capacity),
	}
}

// capacityForRAM sizes the hot tier from the machine's total RAM.
func capacityForRAM() int {
	info, err := mem.VirtualMemory()
	if err != nil {
		return 1000
	}
	gb := float64(info.Total) / (1 << 30)
	switch {
	case gb < 4:
		return 1000
	case gb < 8:
		return 2500
	case gb < 16:
		return 5000
	case gb < 32:
		return 10000
	default:
		return 20000
	}
}

func (m *memoryCache) get(hash string) (*Entry, bool) {
	entry, ok := m.entries[hash]
	if !ok {
		return nil, false
	}
	m.touch(hash)
	return entry, true
}

func (m *memoryCache) put(hash string, entry *Entry) {
	m.entries[hash] = entry
	m.touch(hash)
	m.evict()
}

func (m *memoryCache) delete(hash string) {
	delete(m.entries, hash)
}

// touch moves the hash to the back of the access order. The order slice
// may hold stale duplicates; they are compacted once it grows past twice
// the capacity.
func (m *memoryCache) touch(hash string) {
	m.order = append(m.order, hash)
	if len(m.order) > m.capacity*2 {
		m.compact()
	}
}

func (m *memoryCache) compact() {
	seen := make(map[string]struct{}, len(m.entries))
	deduped := make([]string, 0, len(m.entries))
	for i := len(m.order) - 1; i >= 0; i-- {
		hash := m.order[i]
		if _, ok := seen[hash]; ok {
			continue
		}
		if _, ok := m.entries[hash]; !ok {
			continue
		}
		seen[hash] = struct{}{}
		deduped = append(deduped, hash)
	}
	// deduped is newest-first, the order slice is oldest-first
	for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	}
	m.order = deduped
}

func (m *memoryCache) evict() {
	for len(m.entries) > m.capacity && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		if _, ok := m.entries[oldest]; !ok {
			continue
		}
		if m.isLive(oldest) {
			delete(m.entries, oldest)
		}
	}
}

// isLive reports whether the front-of-order hash has no later access
// recorded, i.e. it really is the least recently used.
func (m *memoryCache) isLive(hash string) bool {
	for _, h := range m.order {
		if h == hash {
			return false
		}
	}
	return true
}

func (m *memoryCache) clear() {
	m.entries = make(map[string]*Entry, m.capacity)
	m.order = nil
}

func (m *memoryCache) len() int {
	return len(m.entries)
}

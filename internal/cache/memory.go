package cache

import (
	"context"
	"sync"
	"time"
)

const defaultJanitorInterval = 5 * time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache. A background janitor sweeps
// expired entries; when the size cap is hit the soonest-expiring entry
// is evicted to make room.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int

	hits   int64
	misses int64
	sets   int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory builds a memory cache capped at maxEntries (0 means
// unbounded) and starts its janitor.
func NewMemory(maxEntries int, janitorInterval time.Duration) *Memory {
	if janitorInterval <= 0 {
		janitorInterval = defaultJanitorInterval
	}
	m := &Memory{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go m.janitor(janitorInterval)
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		m.mu.Lock()
		if ok {
			delete(m.entries, key)
		}
		m.misses++
		m.mu.Unlock()
		return nil, false
	}

	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		if _, exists := m.entries[key]; !exists {
			m.evictLocked()
		}
	}
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.sets++
}

// evictLocked drops expired entries, and if none were expired the
// entry closest to expiry.
func (m *Memory) evictLocked() {
	now := time.Now()
	var (
		soonestKey string
		soonestAt  time.Time
		dropped    bool
	)
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			dropped = true
			continue
		}
		if soonestKey == "" || e.expiresAt.Before(soonestAt) {
			soonestKey, soonestAt = k, e.expiresAt
		}
	}
	if !dropped && soonestKey != "" {
		delete(m.entries, soonestKey)
	}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Backend: "memory",
		Entries: int64(len(m.entries)),
		Hits:    m.hits,
		Misses:  m.misses,
		Sets:    m.sets,
	}
}

// Close stops the janitor. The cache stays usable afterwards.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

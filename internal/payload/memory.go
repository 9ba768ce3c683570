package payload

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	createdAt time.Time
}

// MemoryStore keeps payloads in process. Entries are kept for twice the
// TTL so reads shortly after expiry report ErrExpired rather than
// ErrNotFound; a background goroutine drops older ones until Stop.
type MemoryStore struct {
	policy
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	hits       int64
	misses     int64
	stopChan   chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

// NewMemoryStore starts a store holding at most maxEntries payloads (0
// means unbounded), purged every cleanupInterval.
func NewMemoryStore(maxEntries int, cleanupInterval time.Duration, opts ...Option) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	s := &MemoryStore{
		policy:     newPolicy(opts),
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.cleanup(cleanupInterval)
	return s
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, p *Payload) (*Stored, error) {
	data, err := s.seal(p)
	if err != nil {
		return nil, err
	}
	s.putRaw(p.Meta.ID, data, p.Meta.Created())
	return s.stored(p, data), nil
}

func (s *MemoryStore) putRaw(id string, data []byte, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[id] = memoryEntry{data: data, createdAt: createdAt}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Stored, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("payload %s: %w", id, ErrNotFound)
	}
	return s.open(id, entry.data)
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Stats returns cache statistics.
func (s *MemoryStore) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.hits + s.misses
	ratio := float64(0)
	if total > 0 {
		ratio = float64(s.hits) / float64(total)
	}
	return map[string]any{
		"entries":     len(s.entries),
		"max_entries": s.maxEntries,
		"hit_count":   s.hits,
		"miss_count":  s.misses,
		"hit_ratio":   ratio,
		"ttl_seconds": s.ttl.Seconds(),
	}
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range s.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// Purge drops entries created before cutoff and returns how many.
func (s *MemoryStore) Purge(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, entry := range s.entries {
		if entry.createdAt.Before(cutoff) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Stop ends the cleanup goroutine and waits for it. It is safe to call
// more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Purge(s.now().Add(-2 * s.ttl))
		case <-s.stopChan:
			return
		}
	}
}

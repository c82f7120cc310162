package memory

import (
	"context"
	"sync"

	audit "skimvault/pkg/platform/audit"
)

// InMemoryStore keeps the most recent events in a fixed ring. When full the
// oldest event is overwritten.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	head     int // next write position
	count    int
	capacity int
	dropped  int64
}

var _ audit.Store = (*InMemoryStore)(nil)

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = 10_000
	}
	return &InMemoryStore{events: make([]audit.Event, capacity), capacity: capacity}
}

func (s *InMemoryStore) Append(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == s.capacity {
		s.dropped++
	} else {
		s.count++
	}
	s.events[s.head] = e
	s.head = (s.head + 1) % s.capacity
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]audit.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, s.events[(s.head-i+s.capacity)%s.capacity])
	}
	return out, nil
}

// Dropped returns how many events were overwritten.
func (s *InMemoryStore) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

package journal

import (
	"context"
	"sync"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

const defaultCapacity = 500

// MemoryStore keeps the most recent summaries in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	records  []live.Summary
	closed   bool
}

// NewMemoryStore creates a store holding at most capacity records.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// Record implements Store. Recording an existing id replaces it.
func (s *MemoryStore) Record(ctx context.Context, summary live.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for i := range s.records {
		if s.records[i].ID == summary.ID {
			s.records[i] = summary
			return nil
		}
	}
	s.records = append(s.records, summary)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append(s.records[:0:0], s.records[over:]...)
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]live.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []live.Summary
	for i := len(s.records) - 1; i >= 0; i-- {
		if opts.UserName != "" && s.records[i].UserName != opts.UserName {
			continue
		}
		out = append(out, s.records[i])
	}
	sortNewestFirst(out)
	if limit := opts.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

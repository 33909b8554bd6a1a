package store

import (
	"context"
	"slices"
	"sync"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// MemoryStore is a process-local Store. Entries are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.Entry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Add(_ context.Context, rec model.PersonAddress) (*model.Entry, error) {
	e := newEntry(rec)
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return &e, nil
}

func (s *MemoryStore) AddMany(ctx context.Context, recs []model.PersonAddress) (int, error) {
	for _, rec := range recs {
		if _, err := s.Add(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

// List returns entries newest first.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Entry{}
	for _, e := range slices.Backward(s.entries) {
		if filter.Postcode != "" && e.Postcode != filter.Postcode {
			continue
		}
		out = append(out, e)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []model.Entry{}, nil
		}
		out = out[filter.Offset:]
	}
	if limit := filter.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

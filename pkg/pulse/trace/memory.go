package trace

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in memory. Suitable for tests and
// short-lived debugging sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // session -> records
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

// Append adds a record to the journal.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Session] = append(s.records[rec.Session], rec)
	return nil
}

// List returns all records for a session in sequence order.
func (s *MemoryStore) List(_ context.Context, session string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := append([]Record(nil), s.records[session]...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	return recs, nil
}

// Sessions returns the distinct session IDs in the store.
func (s *MemoryStore) Sessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]string, 0, len(s.records))
	for session := range s.records {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

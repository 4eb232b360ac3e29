package store

import (
	"context"
	"sync"

	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
)

// InMemoryStore keeps ledger records per request in append order.
type InMemoryStore struct {
	mu        sync.RWMutex
	byRequest map[id.RequestID][]notification.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byRequest: make(map[id.RequestID][]notification.Record)}
}

func (s *InMemoryStore) AppendBatch(_ context.Context, records []notification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.byRequest[r.RequestID] = append(s.byRequest[r.RequestID], r)
	}
	return nil
}

func (s *InMemoryStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]notification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.byRequest[requestID]
	out := make([]notification.Record, len(records))
	copy(out, records)
	return out, nil
}

// Count returns the number of records across all requests.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, records := range s.byRequest {
		n += len(records)
	}
	return n
}

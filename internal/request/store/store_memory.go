package store

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in creation order behind one mutex, which
// makes CloseIfOpen atomic.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
	order    []id.RequestID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*models.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := clone(req)
	s.requests[req.ID] = stored
	s.order = append(s.order, req.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(req), nil
}

// List returns requests newest first, optionally filtered by status.
func (s *InMemoryStore) List(_ context.Context, status *models.Status) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Request, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		req := s.requests[s.order[i]]
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, *clone(req))
	}
	return out, nil
}

// CloseIfOpen transitions an open request to closed. transitioned is false
// when the request was already closed; the stored record is returned as is.
func (s *InMemoryStore) CloseIfOpen(_ context.Context, requestID id.RequestID, now time.Time) (*models.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	transitioned := req.Close(now)
	return clone(req), transitioned, nil
}

func clone(req *models.Request) *models.Request {
	c := *req
	if req.ClosedAt != nil {
		closedAt := *req.ClosedAt
		c.ClosedAt = &closedAt
	}
	return &c
}

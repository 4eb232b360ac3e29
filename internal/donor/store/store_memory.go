package store

import (
	"context"
	"sync"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemoryStore keeps donors in registration order.
type InMemoryStore struct {
	mu     sync.RWMutex
	donors map[id.DonorID]models.Donor
	order  []id.DonorID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{donors: make(map[id.DonorID]models.Donor)}
}

func (s *InMemoryStore) Create(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donors[donor.ID]; exists {
		return sentinel.ErrConflict
	}
	s.donors[donor.ID] = *donor
	s.order = append(s.order, donor.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

// FindByIDs returns the donors that exist among ids; unknown ids are skipped.
func (s *InMemoryStore) FindByIDs(_ context.Context, ids []id.DonorID) ([]models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Donor, 0, len(ids))
	for _, donorID := range ids {
		if d, ok := s.donors[donorID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListActiveByBloodGroup(_ context.Context, group id.BloodGroup) ([]models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Donor, 0)
	for _, donorID := range s.order {
		d := s.donors[donorID]
		if d.Eligible(group) {
			out = append(out, d)
		}
	}
	return out, nil
}

// SetActive toggles eligibility. Registration flows use it for opt-out.
func (s *InMemoryStore) SetActive(_ context.Context, donorID id.DonorID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.IsActive = active
	s.donors[donorID] = d
	return nil
}

package store

import (
	"context"
	"sync"

	"stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
)

// InMemory favors clarity over performance; it exists for tests and local
// runs without Postgres.
type InMemory struct {
	mu         sync.RWMutex
	principals map[id.UserID]*models.Principal
}

func NewInMemory() *InMemory {
	return &InMemory{principals: make(map[id.UserID]*models.Principal)}
}

func (s *InMemory) Create(_ context.Context, p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.principals[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.principals[p.ID] = p.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// Execute holds the store lock across validate and mutate so the pair is
// atomic with respect to other writers.
func (s *InMemory) Execute(
	_ context.Context,
	userID id.UserID,
	validate func(p *models.Principal) error,
	mutate func(p *models.Principal),
) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := p.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.principals[userID] = working
	return working.Clone(), nil
}

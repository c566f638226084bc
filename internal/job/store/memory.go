package store

import (
	"context"
	"sort"
	"sync"

	"stagegate/internal/job/models"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
)

type InMemory struct {
	mu   sync.RWMutex
	jobs map[id.JobID]*models.Job
}

func NewInMemory() *InMemory {
	return &InMemory{jobs: make(map[id.JobID]*models.Job)}
}

func (s *InMemory) Create(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, jobID id.JobID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *InMemory) ListVisible(_ context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.Visible() {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	jobID id.JobID,
	validate func(j *models.Job) error,
	mutate func(j *models.Job),
) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := *j
	if validate != nil {
		if err := validate(&working); err != nil {
			return nil, err
		}
	}
	mutate(&working)
	s.jobs[jobID] = &working
	cp := working
	return &cp, nil
}

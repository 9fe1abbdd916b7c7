package jobstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// MemoryStore используется, когда Redis не настроен. Итоги живут до перезапуска.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]notification.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[uuid.UUID]notification.Report)}
}

func (s *MemoryStore) Save(ctx context.Context, report notification.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]notification.RecipientResult, len(report.Results))
	copy(results, report.Results)
	report.Results = results
	s.reports[report.JobID] = report
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID uuid.UUID) (*notification.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[jobID]
	if !ok {
		return nil, apperror.ErrJobNotFound
	}
	results := make([]notification.RecipientResult, len(report.Results))
	copy(results, report.Results)
	report.Results = results
	return &report, nil
}

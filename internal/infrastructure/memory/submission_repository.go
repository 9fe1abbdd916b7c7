package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

type SubmissionRepository struct {
	mu          sync.RWMutex
	submissions map[uuid.UUID]entity.Submission
	tenders     *TenderRepository
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{submissions: make(map[uuid.UUID]entity.Submission)}
}

// Create при связанном хранилище тендеров держит его блокировку на чтение, поэтому
// не пересекается с DeleteUnreferenced. Порядок блокировок: тендеры, затем заявки.
func (r *SubmissionRepository) Create(ctx context.Context, sub *entity.Submission) error {
	if r.tenders != nil {
		r.tenders.mu.RLock()
		defer r.tenders.mu.RUnlock()
		if !r.tenders.hasTenderLocked(sub.TenderID) {
			return apperror.ErrTenderNotFound
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.submissions[sub.ID]; exists {
		return apperror.New(apperror.ErrCodeConflict, "заявка уже существует")
	}
	r.submissions[sub.ID] = cloneSubmission(*sub)
	return nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, apperror.ErrSubmissionNotFound
	}
	out := cloneSubmission(sub)
	return &out, nil
}

func (r *SubmissionRepository) List(ctx context.Context, filter repository.SubmissionFilter) ([]*entity.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[uuid.UUID]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[uuid.UUID]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	out := make([]*entity.Submission, 0, len(r.submissions))
	for _, sub := range r.submissions {
		if filter.TenderID != nil && sub.TenderID != *filter.TenderID {
			continue
		}
		if filter.Status != nil && sub.Status != *filter.Status {
			continue
		}
		if ids != nil {
			if _, ok := ids[sub.ID]; !ok {
				continue
			}
		}
		s := cloneSubmission(sub)
		out = append(out, &s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.SubmissionStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, err := r.expect(id, expected)
	if err != nil {
		return err
	}
	sub.Status = next
	sub.UpdatedAt = updatedAt
	r.submissions[id] = sub
	return nil
}

func (r *SubmissionRepository) UpdateEvaluation(ctx context.Context, id uuid.UUID, expected valueobject.SubmissionStatus, score float64, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, err := r.expect(id, expected)
	if err != nil {
		return err
	}
	sub.Status = valueobject.SubmissionStatusEvaluated
	sub.Score = &score
	sub.UpdatedAt = updatedAt
	r.submissions[id] = sub
	return nil
}

func (r *SubmissionRepository) CountByTender(ctx context.Context, tenderID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.submissions {
		if sub.TenderID == tenderID {
			count++
		}
	}
	return count, nil
}

func (r *SubmissionRepository) expect(id uuid.UUID, expected valueobject.SubmissionStatus) (entity.Submission, error) {
	sub, ok := r.submissions[id]
	if !ok {
		return entity.Submission{}, apperror.ErrSubmissionNotFound
	}
	if sub.Status != expected {
		return entity.Submission{}, apperror.ErrStatusChanged
	}
	return sub, nil
}

func cloneSubmission(sub entity.Submission) entity.Submission {
	if sub.Documents != nil {
		docs := make([]entity.Document, len(sub.Documents))
		copy(docs, sub.Documents)
		sub.Documents = docs
	}
	if sub.Score != nil {
		score := *sub.Score
		sub.Score = &score
	}
	return sub
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// TenderRepository хранит тендеры в памяти процесса. Наружу отдаются только копии.
type TenderRepository struct {
	mu          sync.RWMutex
	tenders     map[uuid.UUID]entity.Tender
	submissions *SubmissionRepository
}

func NewTenderRepository() *TenderRepository {
	return &TenderRepository{tenders: make(map[uuid.UUID]entity.Tender)}
}

// TrackSubmissions связывает хранилища: заявка создаётся только для существующего
// тендера, а DeleteUnreferenced считает ссылки под той же блокировкой.
// Вызывается один раз при сборке приложения.
func (r *TenderRepository) TrackSubmissions(submissions *SubmissionRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = submissions
	submissions.tenders = r
}

func (r *TenderRepository) Create(ctx context.Context, tender *entity.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenders[tender.ID]; exists {
		return apperror.New(apperror.ErrCodeConflict, "тендер уже существует")
	}
	r.tenders[tender.ID] = *tender
	return nil
}

func (r *TenderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenders[id]
	if !ok {
		return nil, apperror.ErrTenderNotFound
	}
	return &t, nil
}

func (r *TenderRepository) List(ctx context.Context, filter repository.TenderFilter) ([]*entity.Tender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	out := make([]*entity.Tender, 0, len(r.tenders))
	for _, t := range r.tenders {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if filter.ClosingBefore != nil && t.ClosingDate.After(*filter.ClosingBefore) {
			continue
		}
		t := t
		out = append(out, &t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entity.Tender{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TenderRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.tenders))
	for id := range r.tenders {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *TenderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.TenderStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenders[id]
	if !ok {
		return apperror.ErrTenderNotFound
	}
	if t.Status != expected {
		return apperror.ErrStatusChanged
	}
	t.Status = next
	t.UpdatedAt = updatedAt
	r.tenders[id] = t
	return nil
}

func (r *TenderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tenders[id]; !ok {
		return apperror.ErrTenderNotFound
	}
	delete(r.tenders, id)
	return nil
}

func (r *TenderRepository) DeleteUnreferenced(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tenders[id]; !ok {
		return 0, apperror.ErrTenderNotFound
	}
	if r.submissions == nil {
		return 0, apperror.New(apperror.ErrCodeInternal, "хранилище заявок не подключено")
	}

	referenced, err := r.submissions.CountByTender(ctx, id)
	if err != nil {
		return 0, err
	}
	if referenced > 0 {
		return referenced, nil
	}
	delete(r.tenders, id)
	return 0, nil
}

// hasTenderLocked вызывается под r.mu со стороны хранилища заявок.
func (r *TenderRepository) hasTenderLocked(id uuid.UUID) bool {
	_, ok := r.tenders[id]
	return ok
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
)

// TenderRepository хранит тендеры. UpdateStatus работает как compare-and-set:
// запись применяется, только если в хранилище всё ещё expected, иначе apperror.ErrStatusChanged.
// DeleteUnreferenced атомарно с созданием заявок удаляет тендер, только если на него
// не ссылается ни одна заявка; иначе тендер остаётся, а возвращается число ссылок.
type TenderRepository interface {
	Create(ctx context.Context, tender *entity.Tender) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Tender, error)
	List(ctx context.Context, filter TenderFilter) ([]*entity.Tender, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.TenderStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteUnreferenced(ctx context.Context, id uuid.UUID) (int, error)
}

type TenderFilter struct {
	Status        *valueobject.TenderStatus
	Category      string
	Search        string
	ClosingBefore *time.Time
	Limit         int
	Offset        int
}

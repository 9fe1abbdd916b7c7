package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
)

// SubmissionRepository хранит заявки. List может вернуть одну заявку несколько раз,
// поэтому вызывающий код обязан схлопывать результат по ID.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *entity.Submission) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]*entity.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.SubmissionStatus, updatedAt time.Time) error
	UpdateEvaluation(ctx context.Context, id uuid.UUID, expected valueobject.SubmissionStatus, score float64, updatedAt time.Time) error
	CountByTender(ctx context.Context, tenderID uuid.UUID) (int, error)
}

type SubmissionFilter struct {
	TenderID *uuid.UUID
	Status   *valueobject.SubmissionStatus
	IDs      []uuid.UUID
}

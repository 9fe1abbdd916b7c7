package submission

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/notification"
)

type GetSubmissionUseCase struct {
	submissionRepo repository.SubmissionRepository
}

func NewGetSubmissionUseCase(submissionRepo repository.SubmissionRepository) *GetSubmissionUseCase {
	return &GetSubmissionUseCase{submissionRepo: submissionRepo}
}

func (uc *GetSubmissionUseCase) Execute(ctx context.Context, submissionID uuid.UUID) (*entity.Submission, error) {
	return uc.submissionRepo.FindByID(ctx, submissionID)
}

type ListSubmissionsInput struct {
	TenderID *uuid.UUID
	Status   string
}

type ListSubmissionsUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewListSubmissionsUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *ListSubmissionsUseCase {
	return &ListSubmissionsUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

// Execute отдаёт заявки без дубликатов и без заявок на удалённые тендеры.
func (uc *ListSubmissionsUseCase) Execute(ctx context.Context, input ListSubmissionsInput) ([]*entity.Submission, error) {
	filter := repository.SubmissionFilter{TenderID: input.TenderID}
	if strings.TrimSpace(input.Status) != "" {
		status, err := valueobject.NormalizeSubmissionStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	subs, err := uc.submissionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids, err := uc.tenderRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	return notification.ExcludeOrphans(notification.Deduplicate(subs), notification.NewTenderSet(ids...)), nil
}

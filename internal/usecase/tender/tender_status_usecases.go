package tender

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/metrics"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// applyTransition проверяет переход на загруженной копии и записывает его через
// compare-and-set. Если статус не изменился (повторный award), запись не выполняется.
// Проигравший гонку запрос успешен, если победитель привёл тендер в тот же статус.
func applyTransition(
	ctx context.Context,
	tenderRepo repository.TenderRepository,
	submissionRepo repository.SubmissionRepository,
	tenderID uuid.UUID,
	apply func(*entity.Tender) error,
) (*entity.Tender, error) {
	tender, err := tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	previous := tender.Status
	if err := apply(tender); err != nil {
		return nil, err
	}

	if tender.Status != previous {
		err := tenderRepo.UpdateStatus(ctx, tender.ID, previous, tender.Status, tender.UpdatedAt)
		switch {
		case errors.Is(err, apperror.ErrStatusChanged):
			stored, findErr := tenderRepo.FindByID(ctx, tender.ID)
			if findErr != nil {
				return nil, findErr
			}
			if stored.Status != tender.Status {
				return nil, err
			}
			tender = stored
		case err != nil:
			return nil, err
		default:
			metrics.LifecycleTransitions.WithLabelValues("tender", string(tender.Status)).Inc()
		}
	}

	count, err := submissionRepo.CountByTender(ctx, tender.ID)
	if err != nil {
		return nil, err
	}
	tender.SubmissionsCount = count
	return tender, nil
}

type PublishTenderUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewPublishTenderUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *PublishTenderUseCase {
	return &PublishTenderUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *PublishTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	return applyTransition(ctx, uc.tenderRepo, uc.submissionRepo, tenderID, (*entity.Tender).Publish)
}

type StartEvaluationUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewStartEvaluationUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *StartEvaluationUseCase {
	return &StartEvaluationUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *StartEvaluationUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	return applyTransition(ctx, uc.tenderRepo, uc.submissionRepo, tenderID, (*entity.Tender).StartEvaluation)
}

type AwardTenderUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewAwardTenderUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *AwardTenderUseCase {
	return &AwardTenderUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *AwardTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	return applyTransition(ctx, uc.tenderRepo, uc.submissionRepo, tenderID, (*entity.Tender).Award)
}

type RejectTenderUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewRejectTenderUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *RejectTenderUseCase {
	return &RejectTenderUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *RejectTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	return applyTransition(ctx, uc.tenderRepo, uc.submissionRepo, tenderID, (*entity.Tender).Reject)
}

type CloseTenderUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewCloseTenderUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *CloseTenderUseCase {
	return &CloseTenderUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *CloseTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	return applyTransition(ctx, uc.tenderRepo, uc.submissionRepo, tenderID, (*entity.Tender).Close)
}

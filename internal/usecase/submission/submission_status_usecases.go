package submission

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/metrics"
)

// applyTransition применяет переход к загруженной заявке и записывает его через
// compare-and-set по прежнему статусу. При ошибке хранилище не меняется.
func applyTransition(
	ctx context.Context,
	submissionRepo repository.SubmissionRepository,
	submissionID uuid.UUID,
	apply func(*entity.Submission) error,
) (*entity.Submission, error) {
	sub, err := submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	previous := sub.Status
	if err := apply(sub); err != nil {
		return nil, err
	}

	if err := submissionRepo.UpdateStatus(ctx, sub.ID, previous, sub.Status, sub.UpdatedAt); err != nil {
		return nil, err
	}
	metrics.LifecycleTransitions.WithLabelValues("submission", string(sub.Status)).Inc()
	return sub, nil
}

type StartReviewUseCase struct {
	submissionRepo repository.SubmissionRepository
}

func NewStartReviewUseCase(submissionRepo repository.SubmissionRepository) *StartReviewUseCase {
	return &StartReviewUseCase{submissionRepo: submissionRepo}
}

func (uc *StartReviewUseCase) Execute(ctx context.Context, submissionID uuid.UUID) (*entity.Submission, error) {
	return applyTransition(ctx, uc.submissionRepo, submissionID, (*entity.Submission).StartReview)
}

type EvaluateSubmissionUseCase struct {
	submissionRepo repository.SubmissionRepository
}

func NewEvaluateSubmissionUseCase(submissionRepo repository.SubmissionRepository) *EvaluateSubmissionUseCase {
	return &EvaluateSubmissionUseCase{submissionRepo: submissionRepo}
}

func (uc *EvaluateSubmissionUseCase) Execute(ctx context.Context, submissionID uuid.UUID, score float64) (*entity.Submission, error) {
	sub, err := uc.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	previous := sub.Status
	if err := sub.Evaluate(score); err != nil {
		return nil, err
	}

	if err := uc.submissionRepo.UpdateEvaluation(ctx, sub.ID, previous, *sub.Score, sub.UpdatedAt); err != nil {
		return nil, err
	}
	metrics.LifecycleTransitions.WithLabelValues("submission", string(sub.Status)).Inc()
	return sub, nil
}

type AwardSubmissionUseCase struct {
	submissionRepo repository.SubmissionRepository
}

func NewAwardSubmissionUseCase(submissionRepo repository.SubmissionRepository) *AwardSubmissionUseCase {
	return &AwardSubmissionUseCase{submissionRepo: submissionRepo}
}

func (uc *AwardSubmissionUseCase) Execute(ctx context.Context, submissionID uuid.UUID) (*entity.Submission, error) {
	return applyTransition(ctx, uc.submissionRepo, submissionID, (*entity.Submission).Award)
}

type RejectSubmissionUseCase struct {
	submissionRepo repository.SubmissionRepository
}

func NewRejectSubmissionUseCase(submissionRepo repository.SubmissionRepository) *RejectSubmissionUseCase {
	return &RejectSubmissionUseCase{submissionRepo: submissionRepo}
}

func (uc *RejectSubmissionUseCase) Execute(ctx context.Context, submissionID uuid.UUID) (*entity.Submission, error) {
	return applyTransition(ctx, uc.submissionRepo, submissionID, (*entity.Submission).Reject)
}

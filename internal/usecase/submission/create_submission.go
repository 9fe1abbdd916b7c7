package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
	"github.com/ignatzorin/tender-portal/internal/validation"
)

type CreateSubmissionInput struct {
	TenderID      uuid.UUID
	CompanyName   string
	ContactPerson *string
	ContactEmail  *string
	Documents     []DocumentInput
}

type DocumentInput struct {
	Name   string
	Status string
}

type CreateSubmissionUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
	now            func() time.Time
}

func NewCreateSubmissionUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *CreateSubmissionUseCase {
	return &CreateSubmissionUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo, now: time.Now}
}

func (uc *CreateSubmissionUseCase) Execute(ctx context.Context, input CreateSubmissionInput) (*entity.Submission, error) {
	if err := validation.ValidateCompanyName(input.CompanyName); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateContactPerson(input.ContactPerson); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateOptionalEmail(input.ContactEmail); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	documents := make([]entity.Document, 0, len(input.Documents))
	for _, doc := range input.Documents {
		if err := validation.ValidateNonEmpty("название документа", doc.Name); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		status, err := valueobject.NewDocumentStatus(doc.Status)
		if err != nil {
			return nil, err
		}
		documents = append(documents, entity.Document{
			ID:     uuid.New(),
			Name:   strings.TrimSpace(doc.Name),
			Status: status,
		})
	}

	tender, err := uc.tenderRepo.FindByID(ctx, input.TenderID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	if !tender.AcceptsSubmissions(now) {
		return nil, apperror.Newf(apperror.ErrCodeConflict,
			"тендер в статусе %q не принимает заявки", tender.Status)
	}

	sub, err := entity.NewSubmission(input.TenderID, input.CompanyName, input.ContactPerson, input.ContactEmail, documents)
	if err != nil {
		return nil, err
	}
	number := applicationNumber(now, sub.ID)
	sub.ApplicationNumber = &number

	if err := uc.submissionRepo.Create(ctx, sub); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}
	return sub, nil
}

// applicationNumber формирует номер вида APP-2026-1A2B3C4D.
func applicationNumber(now time.Time, id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("APP-%d-%s", now.Year(), strings.ToUpper(hex[:8]))
}

package tender

import (
	"context"
	"time"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
	"github.com/ignatzorin/tender-portal/internal/validation"
)

type CreateTenderInput struct {
	Title       string
	Category    string
	Description string
	Budget      float64
	Currency    string
	ClosingDate *time.Time
}

type CreateTenderUseCase struct {
	tenderRepo repository.TenderRepository
}

func NewCreateTenderUseCase(tenderRepo repository.TenderRepository) *CreateTenderUseCase {
	return &CreateTenderUseCase{tenderRepo: tenderRepo}
}

func (uc *CreateTenderUseCase) Execute(ctx context.Context, input CreateTenderInput) (*entity.Tender, error) {
	tender, err := entity.NewTender(
		input.Title,
		input.Category,
		input.Description,
		input.Budget,
		input.Currency,
		input.ClosingDate,
	)
	if err != nil {
		return nil, err
	}

	for _, check := range []error{
		validation.ValidateTenderTitle(tender.Title),
		validation.ValidateCategory(tender.Category),
		validation.ValidateTenderDescription(tender.Description),
		validation.ValidateBudget(tender.Budget.Amount),
	} {
		if check != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, check.Error())
		}
	}

	if err := uc.tenderRepo.Create(ctx, tender); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать тендер")
	}

	return tender, nil
}

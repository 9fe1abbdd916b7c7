package tender

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

type DeleteTenderUseCase struct {
	tenderRepo repository.TenderRepository
}

func NewDeleteTenderUseCase(tenderRepo repository.TenderRepository) *DeleteTenderUseCase {
	return &DeleteTenderUseCase{tenderRepo: tenderRepo}
}

// Execute удаляет тендер. Если на него ссылаются заявки, нужен force: заявки при этом
// не удаляются, а становятся осиротевшими и дальше исключаются из выдачи и рассылок.
func (uc *DeleteTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID, force bool) error {
	if force {
		return uc.tenderRepo.Delete(ctx, tenderID)
	}

	referenced, err := uc.tenderRepo.DeleteUnreferenced(ctx, tenderID)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return apperror.Newf(apperror.ErrCodeConflict,
			"на тендер ссылается заявок: %d; для удаления подтвердите force=true", referenced)
	}
	return nil
}

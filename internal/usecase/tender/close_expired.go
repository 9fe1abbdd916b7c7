package tender

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/metrics"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// CloseExpiredTendersUseCase закрывает открытые тендеры с истёкшим сроком приёма заявок.
type CloseExpiredTendersUseCase struct {
	tenderRepo repository.TenderRepository
	log        logrus.FieldLogger
}

func NewCloseExpiredTendersUseCase(tenderRepo repository.TenderRepository, log logrus.FieldLogger) *CloseExpiredTendersUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CloseExpiredTendersUseCase{tenderRepo: tenderRepo, log: log}
}

// Execute возвращает число закрытых тендеров. Тендер, статус которого успели
// изменить параллельно, пропускается.
func (uc *CloseExpiredTendersUseCase) Execute(ctx context.Context, now time.Time) (int, error) {
	open := valueobject.TenderStatusOpen
	tenders, err := uc.tenderRepo.List(ctx, repository.TenderFilter{
		Status:        &open,
		ClosingBefore: &now,
	})
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, t := range tenders {
		if !t.IsExpired(now) {
			continue
		}
		if err := uc.close(ctx, t); err != nil {
			if apperror.IsConflict(err) || apperror.IsNotFound(err) {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (uc *CloseExpiredTendersUseCase) close(ctx context.Context, t *entity.Tender) error {
	previous := t.Status
	if err := t.Close(); err != nil {
		return err
	}
	if err := uc.tenderRepo.UpdateStatus(ctx, t.ID, previous, t.Status, t.UpdatedAt); err != nil {
		return err
	}
	metrics.LifecycleTransitions.WithLabelValues("tender", string(t.Status)).Inc()
	uc.log.WithFields(logrus.Fields{
		"tender_id":    t.ID,
		"closing_date": t.ClosingDate,
	}).Info("Тендер закрыт по истечении срока")
	return nil
}

// Run периодически запускает Execute до отмены контекста.
func (uc *CloseExpiredTendersUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := uc.Execute(ctx, now); err != nil {
				uc.log.WithError(err).Error("Не удалось закрыть просроченные тендеры")
			}
		}
	}
}

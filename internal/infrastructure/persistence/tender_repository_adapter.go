package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

const tenderColumns = `id, title, category, description, budget_amount, budget_currency, status, closing_date, created_at, updated_at`

type TenderRepositoryAdapter struct {
	db *sqlx.DB
}

func NewTenderRepositoryAdapter(db *sqlx.DB) *TenderRepositoryAdapter {
	return &TenderRepositoryAdapter{db: db}
}

func (r *TenderRepositoryAdapter) Create(ctx context.Context, tender *entity.Tender) error {
	query := `
		INSERT INTO tenders (id, title, category, description, budget_amount, budget_currency, status, closing_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		tender.ID, tender.Title, tender.Category, tender.Description,
		tender.Budget.Amount, tender.Budget.Currency, string(tender.Status),
		tender.ClosingDate, tender.CreatedAt, tender.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать тендер")
	}
	return nil
}

func (r *TenderRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	var row tenderRow
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTenderNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить тендер")
	}
	return row.toEntity(), nil
}

func (r *TenderRepositoryAdapter) List(ctx context.Context, filter repository.TenderFilter) ([]*entity.Tender, error) {
	baseQuery := `FROM tenders WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}

	if filter.Category != "" {
		baseQuery += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, filter.Category)
		argNum++
	}

	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	if filter.ClosingBefore != nil {
		baseQuery += fmt.Sprintf(" AND closing_date <= $%d", argNum)
		args = append(args, *filter.ClosingBefore)
		argNum++
	}

	query := `SELECT ` + tenderColumns + ` ` + baseQuery + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []tenderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить тендеры")
	}

	tenders := make([]*entity.Tender, 0, len(rows))
	for i := range rows {
		tenders = append(tenders, rows[i].toEntity())
	}
	return tenders, nil
}

func (r *TenderRepositoryAdapter) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM tenders`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список тендеров")
	}
	return ids, nil
}

// UpdateStatus меняет статус, только если в базе всё ещё expected.
func (r *TenderRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.TenderStatus, updatedAt time.Time) error {
	query := `UPDATE tenders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, string(expected), string(next), updatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус тендера")
	}
	return r.checkStatusUpdate(ctx, id, result)
}

func (r *TenderRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenders WHERE id = $1`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить тендер")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить тендер")
	}
	if affected == 0 {
		return apperror.ErrTenderNotFound
	}
	return nil
}

// DeleteUnreferenced блокирует строку тендера FOR UPDATE, считает заявки и удаляет
// тендер только при нуле ссылок. Параллельный Create заявки держит FOR SHARE на той же строке.
func (r *TenderRepositoryAdapter) DeleteUnreferenced(ctx context.Context, id uuid.UUID) (int, error) {
	var referenced int
	err := withTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM tenders WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrTenderNotFound
			}
			return err
		}

		if err := tx.GetContext(ctx, &referenced, `SELECT COUNT(DISTINCT id) FROM submissions WHERE tender_id = $1`, id); err != nil {
			return err
		}
		if referenced > 0 {
			return nil
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM tenders WHERE id = $1`, id)
		return err
	})
	if apperror.IsNotFound(err) {
		return 0, err
	}
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить тендер")
	}
	return referenced, nil
}

func (r *TenderRepositoryAdapter) checkStatusUpdate(ctx context.Context, id uuid.UUID, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус тендера")
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM tenders WHERE id = $1)`, id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить тендер")
	}
	if !exists {
		return apperror.ErrTenderNotFound
	}
	return apperror.ErrStatusChanged
}

type tenderRow struct {
	ID             uuid.UUID `db:"id"`
	Title          string    `db:"title"`
	Category       string    `db:"category"`
	Description    string    `db:"description"`
	BudgetAmount   float64   `db:"budget_amount"`
	BudgetCurrency string    `db:"budget_currency"`
	Status         string    `db:"status"`
	ClosingDate    time.Time `db:"closing_date"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *tenderRow) toEntity() *entity.Tender {
	return &entity.Tender{
		ID:          r.ID,
		Title:       r.Title,
		Category:    r.Category,
		Description: r.Description,
		Budget:      valueobject.Money{Amount: r.BudgetAmount, Currency: r.BudgetCurrency},
		Status:      valueobject.TenderStatus(r.Status),
		ClosingDate: r.ClosingDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

const submissionColumns = `id, tender_id, application_number, company_name, contact_person, contact_email, status, score, submitted_at, updated_at`

type SubmissionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewSubmissionRepositoryAdapter(db *sqlx.DB) *SubmissionRepositoryAdapter {
	return &SubmissionRepositoryAdapter{db: db}
}

// Create сохраняет заявку и её документы в одной транзакции. Строка тендера берётся
// FOR SHARE, поэтому удаление тендера без force дождётся коммита и увидит заявку.
func (r *SubmissionRepositoryAdapter) Create(ctx context.Context, sub *entity.Submission) error {
	err := withTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var tenderID uuid.UUID
		if err := tx.GetContext(ctx, &tenderID, `SELECT id FROM tenders WHERE id = $1 FOR SHARE`, sub.TenderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrTenderNotFound
			}
			return err
		}

		query := `
			INSERT INTO submissions (id, tender_id, application_number, company_name, contact_person, contact_email, status, score, submitted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		if _, err := tx.ExecContext(ctx, query,
			sub.ID, sub.TenderID, sub.ApplicationNumber, sub.CompanyName,
			sub.ContactPerson, sub.ContactEmail, string(sub.Status), sub.Score,
			sub.SubmittedAt, sub.UpdatedAt,
		); err != nil {
			return err
		}

		docs := newBatchInserter(tx, `INSERT INTO submission_documents (id, submission_id, name, status, position)`, 5, 0)
		for i, doc := range sub.Documents {
			if err := docs.Add(ctx, doc.ID, sub.ID, doc.Name, string(doc.Status), i); err != nil {
				return err
			}
		}
		return docs.Flush(ctx)
	})
	if apperror.IsNotFound(err) {
		return err
	}
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}
	return nil
}

func (r *SubmissionRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error) {
	var row submissionRow
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrSubmissionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}

	subs, err := r.attachDocuments(ctx, []submissionRow{row})
	if err != nil {
		return nil, err
	}
	return subs[0], nil
}

func (r *SubmissionRepositoryAdapter) List(ctx context.Context, filter repository.SubmissionFilter) ([]*entity.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.TenderID != nil {
		query += fmt.Sprintf(" AND tender_id = $%d", argNum)
		args = append(args, *filter.TenderID)
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argNum)
		args = append(args, pq.Array(uuidStrings(filter.IDs)))
	}

	query += ` ORDER BY submitted_at ASC`

	var rows []submissionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки")
	}
	return r.attachDocuments(ctx, rows)
}

// UpdateStatus меняет статус, только если в базе всё ещё expected.
func (r *SubmissionRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next valueobject.SubmissionStatus, updatedAt time.Time) error {
	query := `UPDATE submissions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, string(expected), string(next), updatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус заявки")
	}
	return r.checkStatusUpdate(ctx, id, result)
}

// UpdateEvaluation записывает оценку и статус evaluated одним compare-and-set.
func (r *SubmissionRepositoryAdapter) UpdateEvaluation(ctx context.Context, id uuid.UUID, expected valueobject.SubmissionStatus, score float64, updatedAt time.Time) error {
	query := `UPDATE submissions SET status = $3, score = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query,
		id, string(expected), string(valueobject.SubmissionStatusEvaluated), score, updatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить оценку заявки")
	}
	return r.checkStatusUpdate(ctx, id, result)
}

func (r *SubmissionRepositoryAdapter) CountByTender(ctx context.Context, tenderID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT id) FROM submissions WHERE tender_id = $1`, tenderID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать заявки")
	}
	return count, nil
}

func (r *SubmissionRepositoryAdapter) checkStatusUpdate(ctx context.Context, id uuid.UUID, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус заявки")
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)`, id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить заявку")
	}
	if !exists {
		return apperror.ErrSubmissionNotFound
	}
	return apperror.ErrStatusChanged
}

func (r *SubmissionRepositoryAdapter) attachDocuments(ctx context.Context, rows []submissionRow) ([]*entity.Submission, error) {
	subs := make([]*entity.Submission, 0, len(rows))
	if len(rows) == 0 {
		return subs, nil
	}

	byID := make(map[uuid.UUID][]*entity.Submission, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		sub := rows[i].toEntity()
		subs = append(subs, sub)
		if _, seen := byID[sub.ID]; !seen {
			ids = append(ids, sub.ID.String())
		}
		byID[sub.ID] = append(byID[sub.ID], sub)
	}

	var docs []documentRow
	query := `
		SELECT id, submission_id, name, status
		FROM submission_documents WHERE submission_id = ANY($1)
		ORDER BY submission_id, position
	`
	if err := r.db.SelectContext(ctx, &docs, query, pq.Array(ids)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить документы заявок")
	}

	for _, d := range docs {
		for _, sub := range byID[d.SubmissionID] {
			sub.Documents = append(sub.Documents, entity.Document{
				ID:     d.ID,
				Name:   d.Name,
				Status: valueobject.DocumentStatus(d.Status),
			})
		}
	}
	return subs, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

type submissionRow struct {
	ID                uuid.UUID `db:"id"`
	TenderID          uuid.UUID `db:"tender_id"`
	ApplicationNumber *string   `db:"application_number"`
	CompanyName       string    `db:"company_name"`
	ContactPerson     *string   `db:"contact_person"`
	ContactEmail      *string   `db:"contact_email"`
	Status            string    `db:"status"`
	Score             *float64  `db:"score"`
	SubmittedAt       time.Time `db:"submitted_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// toEntity приводит статус к единому написанию; нераспознанное значение остаётся как есть.
func (r *submissionRow) toEntity() *entity.Submission {
	status, err := valueobject.NormalizeSubmissionStatus(r.Status)
	if err != nil {
		status = valueobject.SubmissionStatus(r.Status)
	}
	return &entity.Submission{
		ID:                r.ID,
		TenderID:          r.TenderID,
		ApplicationNumber: r.ApplicationNumber,
		CompanyName:       r.CompanyName,
		ContactPerson:     r.ContactPerson,
		ContactEmail:      r.ContactEmail,
		Status:            status,
		Score:             r.Score,
		SubmittedAt:       r.SubmittedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type documentRow struct {
	ID           uuid.UUID `db:"id"`
	SubmissionID uuid.UUID `db:"submission_id"`
	Name         string    `db:"name"`
	Status       string    `db:"status"`
}

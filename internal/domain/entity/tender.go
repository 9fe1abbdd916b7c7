package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

type Tender struct {
	ID          uuid.UUID
	Title       string
	Category    string
	Description string
	Budget      valueobject.Money
	Status      valueobject.TenderStatus
	ClosingDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// SubmissionsCount не хранится: считается по заявкам при каждой выдаче.
	SubmissionsCount int
}

func NewTender(title, category, description string, budget float64, currency string, closingDate *time.Time) (*Tender, error) {
	title = strings.TrimSpace(title)
	category = strings.TrimSpace(category)
	description = strings.TrimSpace(description)

	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название тендера обязательно")
	}
	if category == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "категория тендера обязательна")
	}
	if description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание тендера обязательно")
	}
	if closingDate == nil || closingDate.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата закрытия тендера обязательна")
	}
	if closingDate.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата закрытия не может быть в прошлом")
	}

	money, err := valueobject.NewBudget(budget, currency)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Tender{
		ID:          uuid.New(),
		Title:       title,
		Category:    category,
		Description: description,
		Budget:      money,
		Status:      valueobject.TenderStatusDraft,
		ClosingDate: closingDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (t *Tender) Publish() error {
	return t.transitionTo(valueobject.TenderStatusOpen)
}

func (t *Tender) StartEvaluation() error {
	return t.transitionTo(valueobject.TenderStatusEvaluation)
}

// Award повторно на уже присуждённом тендере ничего не меняет.
func (t *Tender) Award() error {
	if t.Status == valueobject.TenderStatusAwarded {
		return nil
	}
	return t.transitionTo(valueobject.TenderStatusAwarded)
}

func (t *Tender) Reject() error {
	if t.Status == valueobject.TenderStatusRejected {
		return nil
	}
	return t.transitionTo(valueobject.TenderStatusRejected)
}

func (t *Tender) Close() error {
	return t.transitionTo(valueobject.TenderStatusClosed)
}

// IsExpired сообщает, что приём заявок по тендеру должен быть закрыт.
func (t *Tender) IsExpired(now time.Time) bool {
	return t.Status == valueobject.TenderStatusOpen && !t.ClosingDate.After(now)
}

func (t *Tender) AcceptsSubmissions(now time.Time) bool {
	return t.Status == valueobject.TenderStatusOpen && t.ClosingDate.After(now)
}

func (t *Tender) transitionTo(next valueobject.TenderStatus) error {
	if t.Status.IsTerminal() {
		return apperror.Newf(apperror.ErrCodeIllegalTransition,
			"тендер закрыт, перевод в статус %q невозможен", next)
	}
	if !t.Status.CanTransitionTo(next) {
		return apperror.Newf(apperror.ErrCodeIllegalTransition,
			"невозможно перевести тендер из статуса %q в %q", t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	return nil
}

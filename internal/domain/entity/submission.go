package entity

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

type Submission struct {
	ID                uuid.UUID
	TenderID          uuid.UUID
	ApplicationNumber *string
	CompanyName       string
	ContactPerson     *string
	ContactEmail      *string
	Status            valueobject.SubmissionStatus
	Score             *float64
	Documents         []Document
	SubmittedAt       time.Time
	UpdatedAt         time.Time
}

type Document struct {
	ID     uuid.UUID
	Name   string
	Status valueobject.DocumentStatus
}

func NewSubmission(tenderID uuid.UUID, companyName string, contactPerson, contactEmail *string, documents []Document) (*Submission, error) {
	companyName = strings.TrimSpace(companyName)
	if tenderID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "тендер заявки обязателен")
	}
	if companyName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название компании обязательно")
	}

	now := time.Now()
	return &Submission{
		ID:            uuid.New(),
		TenderID:      tenderID,
		CompanyName:   companyName,
		ContactPerson: trimmedOrNil(contactPerson),
		ContactEmail:  trimmedOrNil(contactEmail),
		Status:        valueobject.SubmissionStatusSubmitted,
		Documents:     documents,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}, nil
}

func (s *Submission) StartReview() error {
	return s.transitionTo(valueobject.SubmissionStatusUnderReview)
}

// Evaluate сначала проверяет оценку, затем переход: оценка вне [0,100] всегда ошибка валидации.
func (s *Submission) Evaluate(score float64) error {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return apperror.Newf(apperror.ErrCodeValidation, "оценка должна быть в диапазоне от %.0f до %.0f", MinScore, MaxScore)
	}
	if err := s.transitionTo(valueobject.SubmissionStatusEvaluated); err != nil {
		return err
	}
	s.Score = &score
	return nil
}

func (s *Submission) Award() error {
	return s.transitionTo(valueobject.SubmissionStatusAwarded)
}

func (s *Submission) Reject() error {
	return s.transitionTo(valueobject.SubmissionStatusRejected)
}

// Email возвращает адрес для рассылки или пустую строку.
func (s *Submission) Email() string {
	if s.ContactEmail == nil {
		return ""
	}
	return strings.TrimSpace(*s.ContactEmail)
}

func (s *Submission) DocumentStatuses() []valueobject.DocumentStatus {
	statuses := make([]valueobject.DocumentStatus, 0, len(s.Documents))
	for _, doc := range s.Documents {
		statuses = append(statuses, doc.Status)
	}
	return statuses
}

func (s *Submission) transitionTo(next valueobject.SubmissionStatus) error {
	if s.Status.IsTerminal() {
		return apperror.Newf(apperror.ErrCodeIllegalTransition,
			"заявка в статусе %q уже не может быть изменена", s.Status)
	}
	if !s.Status.CanTransitionTo(next) {
		return apperror.Newf(apperror.ErrCodeIllegalTransition,
			"невозможно перевести заявку из статуса %q в %q", s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = time.Now()
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

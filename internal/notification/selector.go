package notification

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// PolicyKind задаёт, кому из заявителей уходит рассылка.
type PolicyKind string

const (
	PolicyAll              PolicyKind = "all"
	PolicyMissingDocuments PolicyKind = "missing_documents"
	PolicyByStatus         PolicyKind = "by_status"
)

type Policy struct {
	Kind   PolicyKind
	Status valueobject.SubmissionStatus
}

// ParsePolicy разбирает политику отбора. Ошибка здесь прерывает рассылку до первой отправки.
func ParsePolicy(kind, status string) (Policy, error) {
	switch PolicyKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", PolicyAll:
		return Policy{Kind: PolicyAll}, nil
	case PolicyMissingDocuments:
		return Policy{Kind: PolicyMissingDocuments}, nil
	case PolicyByStatus:
		s, err := valueobject.NormalizeSubmissionStatus(status)
		if err != nil {
			return Policy{}, err
		}
		return Policy{Kind: PolicyByStatus, Status: s}, nil
	}
	return Policy{}, apperror.Newf(apperror.ErrCodeValidation, "неизвестная политика отбора: %q", kind)
}

func (p Policy) validate() error {
	switch p.Kind {
	case PolicyAll, PolicyMissingDocuments:
		return nil
	case PolicyByStatus:
		if !p.Status.IsValid() {
			return apperror.New(apperror.ErrCodeValidation, "для отбора по статусу нужен корректный статус")
		}
		return nil
	}
	return apperror.Newf(apperror.ErrCodeValidation, "неизвестная политика отбора: %q", p.Kind)
}

// DocumentStatusProvider отдаёт статусы документов заявки. Нужен только для missing_documents.
type DocumentStatusProvider interface {
	DocumentStatuses(submission *entity.Submission) []valueobject.DocumentStatus
}

// EmbeddedDocuments берёт статусы из документов, загруженных вместе с заявкой.
type EmbeddedDocuments struct{}

func (EmbeddedDocuments) DocumentStatuses(submission *entity.Submission) []valueobject.DocumentStatus {
	return submission.DocumentStatuses()
}

// TenderSet хранит ID существующих тендеров.
type TenderSet map[uuid.UUID]struct{}

func NewTenderSet(ids ...uuid.UUID) TenderSet {
	set := make(TenderSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s TenderSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

type Selector struct {
	docs DocumentStatusProvider
}

func NewSelector(docs DocumentStatusProvider) *Selector {
	if docs == nil {
		docs = EmbeddedDocuments{}
	}
	return &Selector{docs: docs}
}

// Select за один проход отбрасывает заявки на несуществующие тендеры, схлопывает
// дубликаты по ID (остаётся первое вхождение) и применяет политику. Пустой результат не ошибка.
func (s *Selector) Select(submissions []*entity.Submission, policy Policy, tenders TenderSet) ([]*entity.Submission, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(submissions))
	recipients := make([]*entity.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub == nil || !tenders.Has(sub.TenderID) {
			continue
		}
		if _, dup := seen[sub.ID]; dup {
			continue
		}
		seen[sub.ID] = struct{}{}

		if s.matches(sub, policy) {
			recipients = append(recipients, sub)
		}
	}
	return recipients, nil
}

func (s *Selector) matches(sub *entity.Submission, policy Policy) bool {
	switch policy.Kind {
	case PolicyMissingDocuments:
		for _, status := range s.docs.DocumentStatuses(sub) {
			if status.NeedsResubmission() {
				return true
			}
		}
		return false
	case PolicyByStatus:
		status, err := valueobject.NormalizeSubmissionStatus(string(sub.Status))
		return err == nil && status == policy.Status
	default:
		return true
	}
}

// Deduplicate схлопывает заявки по ID, сохраняя первое вхождение и исходный порядок.
func Deduplicate(submissions []*entity.Submission) []*entity.Submission {
	seen := make(map[uuid.UUID]struct{}, len(submissions))
	out := make([]*entity.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub == nil {
			continue
		}
		if _, dup := seen[sub.ID]; dup {
			continue
		}
		seen[sub.ID] = struct{}{}
		out = append(out, sub)
	}
	return out
}

// ExcludeOrphans убирает заявки, чей тендер удалён.
func ExcludeOrphans(submissions []*entity.Submission, tenders TenderSet) []*entity.Submission {
	out := make([]*entity.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub != nil && tenders.Has(sub.TenderID) {
			out = append(out, sub)
		}
	}
	return out
}

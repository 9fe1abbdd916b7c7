package valueobject

import (
	"strings"

	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

type TenderStatus string

const (
	TenderStatusDraft      TenderStatus = "draft"
	TenderStatusOpen       TenderStatus = "open"
	TenderStatusEvaluation TenderStatus = "evaluation"
	TenderStatusAwarded    TenderStatus = "awarded"
	TenderStatusRejected   TenderStatus = "rejected"
	TenderStatusClosed     TenderStatus = "closed"
)

var tenderTransitions = map[TenderStatus][]TenderStatus{
	TenderStatusDraft:      {TenderStatusOpen, TenderStatusClosed},
	TenderStatusOpen:       {TenderStatusEvaluation, TenderStatusAwarded, TenderStatusRejected, TenderStatusClosed},
	TenderStatusEvaluation: {TenderStatusAwarded, TenderStatusRejected, TenderStatusClosed},
	TenderStatusAwarded:    {TenderStatusClosed},
	TenderStatusRejected:   {TenderStatusClosed},
	TenderStatusClosed:     {},
}

func (s TenderStatus) IsValid() bool {
	_, ok := tenderTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет ни одного перехода.
func (s TenderStatus) IsTerminal() bool {
	return s == TenderStatusClosed
}

func (s TenderStatus) CanTransitionTo(newStatus TenderStatus) bool {
	for _, status := range tenderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ParseTenderStatus разбирает статус без учёта регистра и пробелов по краям.
func ParseTenderStatus(status string) (TenderStatus, error) {
	s := TenderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !s.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "некорректный статус тендера: %q", status)
	}
	return s, nil
}

type SubmissionStatus string

const (
	SubmissionStatusSubmitted   SubmissionStatus = "submitted"
	SubmissionStatusUnderReview SubmissionStatus = "under_review"
	SubmissionStatusEvaluated   SubmissionStatus = "evaluated"
	SubmissionStatusAwarded     SubmissionStatus = "awarded"
	SubmissionStatusRejected    SubmissionStatus = "rejected"
)

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusSubmitted:   {SubmissionStatusUnderReview, SubmissionStatusRejected},
	SubmissionStatusUnderReview: {SubmissionStatusEvaluated, SubmissionStatusRejected},
	SubmissionStatusEvaluated:   {SubmissionStatusAwarded, SubmissionStatusRejected},
	SubmissionStatusAwarded:     {},
	SubmissionStatusRejected:    {},
}

// Старые клиенты присылают статусы в произвольном виде.
var submissionStatusAliases = map[string]SubmissionStatus{
	"in_review": SubmissionStatusUnderReview,
	"reviewing": SubmissionStatusUnderReview,
	"received":  SubmissionStatusSubmitted,
}

func (s SubmissionStatus) IsValid() bool {
	_, ok := submissionTransitions[s]
	return ok
}

func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusAwarded || s == SubmissionStatusRejected
}

func (s SubmissionStatus) CanTransitionTo(newStatus SubmissionStatus) bool {
	for _, status := range submissionTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// NormalizeSubmissionStatus приводит внешнее написание статуса ("Under Review",
// "under-review", "UNDER_REVIEW") к единому значению.
func NormalizeSubmissionStatus(status string) (SubmissionStatus, error) {
	key := strings.ToLower(strings.TrimSpace(status))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")

	s := SubmissionStatus(key)
	if s.IsValid() {
		return s, nil
	}
	if alias, ok := submissionStatusAliases[key]; ok {
		return alias, nil
	}
	return "", apperror.Newf(apperror.ErrCodeValidation, "некорректный статус заявки: %q", status)
}

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusUploaded DocumentStatus = "uploaded"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusMissing  DocumentStatus = "missing"
	DocumentStatusRejected DocumentStatus = "rejected"
)

func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusUploaded, DocumentStatusApproved, DocumentStatusMissing, DocumentStatusRejected:
		return true
	}
	return false
}

// NeedsResubmission отмечает документы, из-за которых заявителю пишут о недостающих документах.
func (s DocumentStatus) NeedsResubmission() bool {
	return s == DocumentStatusMissing || s == DocumentStatusRejected
}

func NewDocumentStatus(status string) (DocumentStatus, error) {
	s := DocumentStatus(strings.ToLower(strings.TrimSpace(status)))
	if s == "" {
		return DocumentStatusPending, nil
	}
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус документа")
	}
	return s, nil
}

package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/usecase/submission"
)

type CreateSubmissionRequest struct {
	TenderID      uuid.UUID     `json:"tender_id" binding:"required"`
	CompanyName   string        `json:"company_name" binding:"required"`
	ContactPerson *string       `json:"contact_person"`
	ContactEmail  *string       `json:"contact_email"`
	Documents     []DocumentDTO `json:"documents"`
}

type EvaluateSubmissionRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

type DocumentDTO struct {
	ID     uuid.UUID `json:"id,omitempty"`
	Name   string    `json:"name" binding:"required"`
	Status string    `json:"status"`
}

type SubmissionResponse struct {
	ID                uuid.UUID     `json:"id"`
	TenderID          uuid.UUID     `json:"tender_id"`
	ApplicationNumber *string       `json:"application_number"`
	CompanyName       string        `json:"company_name"`
	ContactPerson     *string       `json:"contact_person"`
	ContactEmail      *string       `json:"contact_email"`
	Status            string        `json:"status"`
	Score             *float64      `json:"score"`
	Documents         []DocumentDTO `json:"documents"`
	SubmittedAt       time.Time     `json:"submitted_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (r CreateSubmissionRequest) ToInput() submission.CreateSubmissionInput {
	docs := make([]submission.DocumentInput, 0, len(r.Documents))
	for _, d := range r.Documents {
		docs = append(docs, submission.DocumentInput{Name: d.Name, Status: d.Status})
	}
	return submission.CreateSubmissionInput{
		TenderID:      r.TenderID,
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		ContactEmail:  r.ContactEmail,
		Documents:     docs,
	}
}

func ToSubmissionResponse(s *entity.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:                s.ID,
		TenderID:          s.TenderID,
		ApplicationNumber: s.ApplicationNumber,
		CompanyName:       s.CompanyName,
		ContactPerson:     s.ContactPerson,
		ContactEmail:      s.ContactEmail,
		Status:            string(s.Status),
		Score:             s.Score,
		Documents:         make([]DocumentDTO, 0, len(s.Documents)),
		SubmittedAt:       s.SubmittedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for _, d := range s.Documents {
		resp.Documents = append(resp.Documents, DocumentDTO{ID: d.ID, Name: d.Name, Status: string(d.Status)})
	}
	return resp
}

func ToSubmissionResponses(subs []*entity.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, ToSubmissionResponse(s))
	}
	return out
}

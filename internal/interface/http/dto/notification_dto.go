package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	notificationuc "github.com/ignatzorin/tender-portal/internal/usecase/notification"
)

// SelectionRequest описывает, кому предназначена рассылка.
type SelectionRequest struct {
	Policy        string      `json:"policy"`
	Status        string      `json:"status"`
	TenderID      *uuid.UUID  `json:"tender_id"`
	SubmissionIDs []uuid.UUID `json:"submission_ids"`
}

type StartJobRequest struct {
	SelectionRequest
	TemplateID    string `json:"template_id" binding:"required"`
	CustomMessage string `json:"custom_message"`
}

type PreviewMessageRequest struct {
	TemplateID    string    `json:"template_id" binding:"required"`
	SubmissionID  uuid.UUID `json:"submission_id" binding:"required"`
	CustomMessage string    `json:"custom_message"`
}

type RecipientResponse struct {
	SubmissionID      uuid.UUID `json:"submission_id"`
	TenderID          uuid.UUID `json:"tender_id"`
	CompanyName       string    `json:"company_name"`
	Email             string    `json:"email"`
	ApplicationNumber *string   `json:"application_number"`
	Status            string    `json:"status"`
}

func (r SelectionRequest) ToInput() notificationuc.SelectionInput {
	return notificationuc.SelectionInput{
		Policy:        r.Policy,
		Status:        r.Status,
		TenderID:      r.TenderID,
		SubmissionIDs: r.SubmissionIDs,
	}
}

func (r StartJobRequest) ToInput(createdBy uuid.UUID, wait bool) notificationuc.StartRunInput {
	return notificationuc.StartRunInput{
		SelectionInput: r.SelectionRequest.ToInput(),
		TemplateID:     r.TemplateID,
		CustomMessage:  r.CustomMessage,
		CreatedBy:      createdBy,
		Wait:           wait,
	}
}

func ToRecipientResponses(subs []*entity.Submission) []RecipientResponse {
	out := make([]RecipientResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, RecipientResponse{
			SubmissionID:      s.ID,
			TenderID:          s.TenderID,
			CompanyName:       s.CompanyName,
			Email:             s.Email(),
			ApplicationNumber: s.ApplicationNumber,
			Status:            string(s.Status),
		})
	}
	return out
}

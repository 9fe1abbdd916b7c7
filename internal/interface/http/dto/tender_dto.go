package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
)

type CreateTenderRequest struct {
	Title       string  `json:"title" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Budget      float64 `json:"budget" binding:"required,gt=0"`
	Currency    string  `json:"currency"`
	ClosingDate *string `json:"closing_date"`
}

type TenderResponse struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Budget           float64   `json:"budget"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	ClosingDate      time.Time `json:"closing_date"`
	SubmissionsCount int       `json:"submissions_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func ToTenderResponse(t *entity.Tender) TenderResponse {
	return TenderResponse{
		ID:               t.ID,
		Title:            t.Title,
		Category:         t.Category,
		Description:      t.Description,
		Budget:           t.Budget.Amount,
		Currency:         t.Budget.Currency,
		Status:           string(t.Status),
		ClosingDate:      t.ClosingDate,
		SubmissionsCount: t.SubmissionsCount,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func ToTenderResponses(tenders []*entity.Tender) []TenderResponse {
	out := make([]TenderResponse, 0, len(tenders))
	for _, t := range tenders {
		out = append(out, ToTenderResponse(t))
	}
	return out
}

// ParseClosingDate принимает RFC3339 или дату без времени (конец дня UTC).
func ParseClosingDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *value); err == nil {
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, *value)
	if err != nil {
		return nil, fmt.Errorf("некорректный формат даты закрытия: %q", *value)
	}
	endOfDay := day.Add(24*time.Hour - time.Second)
	return &endOfDay, nil
}

package notification

import (
	"time"

	"github.com/google/uuid"
)

// Report — итог рассылки для вызывающей стороны и для хранилища.
type Report struct {
	JobID         uuid.UUID         `json:"job_id"`
	State         JobState          `json:"state"`
	TemplateID    TemplateID        `json:"template_id"`
	CustomMessage string            `json:"custom_message,omitempty"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	Total         int               `json:"total"`
	Successful    int               `json:"successful"`
	Failed        int               `json:"failed"`
	Pending       int               `json:"pending"`
	Results       []RecipientResult `json:"results"`
	CreatedAt     time.Time         `json:"created_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

// BuildReport снимает копию состояния рассылки и ничего в ней не меняет.
// Результаты идут в порядке получателей, ещё не обработанные пропускаются.
func BuildReport(job *Job) Report {
	job.mu.RLock()
	defer job.mu.RUnlock()

	progress := job.progressLocked()
	results := make([]RecipientResult, 0, len(job.results))
	for _, sub := range job.recipients {
		if result, ok := job.results[sub.ID]; ok {
			results = append(results, result)
		}
	}

	var finishedAt *time.Time
	if job.finishedAt != nil {
		t := *job.finishedAt
		finishedAt = &t
	}

	return Report{
		JobID:         job.ID,
		State:         job.state,
		TemplateID:    job.TemplateID,
		CustomMessage: job.CustomMessage,
		CreatedBy:     job.CreatedBy,
		Total:         progress.Total,
		Successful:    progress.Successful,
		Failed:        progress.Failed,
		Pending:       progress.Pending,
		Results:       results,
		CreatedAt:     job.CreatedAt,
		FinishedAt:    finishedAt,
	}
}

func (r Report) IsTerminal() bool {
	return r.State.IsTerminal()
}

// IsEmpty отличает «никого не выбрали» от «отправили, но не доставили».
func (r Report) IsEmpty() bool {
	return r.Total == 0
}

func (r Report) FailedRecipientIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, r.Failed)
	for _, result := range r.Results {
		if result.Status == ResultFailed {
			ids = append(ids, result.RecipientID)
		}
	}
	return ids
}

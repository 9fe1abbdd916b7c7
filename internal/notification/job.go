package notification

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

// JobState — состояние рассылки. Переходы: created -> rendering -> dispatching -> complete,
// из любого нетерминального состояния возможен cancelled.
type JobState string

const (
	JobStateCreated     JobState = "created"
	JobStateRendering   JobState = "rendering"
	JobStateDispatching JobState = "dispatching"
	JobStateComplete    JobState = "complete"
	JobStateCancelled   JobState = "cancelled"
)

func (s JobState) IsTerminal() bool {
	return s == JobStateComplete || s == JobStateCancelled
}

type ResultStatus string

const (
	ResultSent   ResultStatus = "sent"
	ResultFailed ResultStatus = "failed"
)

const (
	ReasonNoEmail   = "no_email"
	ReasonCancelled = "cancelled"
)

// Message содержит готовое письмо одному получателю.
type Message struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Address     string    `json:"address"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
}

type RecipientResult struct {
	RecipientID uuid.UUID    `json:"recipient_id"`
	Address     string       `json:"address,omitempty"`
	Status      ResultStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

type Progress struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}

// Job владеет состоянием одной рассылки. Результаты пишет только Dispatcher,
// наблюдатели получают копии.
type Job struct {
	ID            uuid.UUID
	TemplateID    TemplateID
	CustomMessage string
	CreatedBy     uuid.UUID
	CreatedAt     time.Time

	mu         sync.RWMutex
	state      JobState
	recipients []*entity.Submission
	messages   []Message
	results    map[uuid.UUID]RecipientResult
	successful int
	failed     int
	skipped    int
	finishedAt *time.Time

	cancelled atomic.Bool
}

// NewJob повторно схлопывает получателей по ID: письмо одному получателю уходит не более одного раза.
func NewJob(templateID TemplateID, customMessage string, recipients []*entity.Submission) *Job {
	return &Job{
		ID:            uuid.New(),
		TemplateID:    templateID,
		CustomMessage: customMessage,
		CreatedAt:     time.Now(),
		state:         JobStateCreated,
		recipients:    Deduplicate(recipients),
		results:       make(map[uuid.UUID]RecipientResult),
	}
}

// Render готовит письма для всех получателей. Повторный вызов не допускается.
func (j *Job) Render(renderer *Renderer, tenderTitles map[uuid.UUID]string) error {
	if _, err := renderer.Lookup(string(j.TemplateID)); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobStateCreated {
		return apperror.Newf(apperror.ErrCodeIllegalTransition,
			"рассылка в состоянии %q не может быть подготовлена", j.state)
	}
	j.state = JobStateRendering

	messages := make([]Message, 0, len(j.recipients))
	for _, sub := range j.recipients {
		rendered, err := renderer.Render(string(j.TemplateID), sub, tenderTitles[sub.TenderID], j.CustomMessage)
		if err != nil {
			return err
		}
		messages = append(messages, Message{
			RecipientID: sub.ID,
			Address:     sub.Email(),
			Subject:     rendered.Subject,
			Body:        rendered.Body,
		})
	}
	j.messages = messages
	return nil
}

// Cancel до начала отправки закрывает рассылку сразу, во время отправки только
// запрещает планировать новые письма. Уже отправленное не отзывается.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case JobStateCreated, JobStateRendering:
		j.cancelled.Store(true)
		now := time.Now()
		for _, sub := range j.recipients {
			j.recordLocked(RecipientResult{
				RecipientID: sub.ID,
				Address:     sub.Email(),
				Status:      ResultFailed,
				Error:       ReasonCancelled,
				Timestamp:   now,
			})
		}
		j.state = JobStateCancelled
		j.finishedAt = &now
		return true
	case JobStateDispatching:
		return j.cancelled.CompareAndSwap(false, true)
	}
	return false
}

func (j *Job) IsCancelled() bool {
	return j.cancelled.Load()
}

func (j *Job) State() JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

func (j *Job) Progress() Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progressLocked()
}

func (j *Job) Recipients() []*entity.Submission {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]*entity.Submission, len(j.recipients))
	copy(out, j.recipients)
	return out
}

func (j *Job) Messages() []Message {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Message, len(j.messages))
	copy(out, j.messages)
	return out
}

func (j *Job) beginDispatch() (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case JobStateRendering:
		j.state = JobStateDispatching
		return true, nil
	case JobStateCancelled:
		return false, nil
	}
	return false, apperror.Newf(apperror.ErrCodeIllegalTransition,
		"рассылка в состоянии %q не может быть запущена", j.state)
}

// record сохраняет первый результат по получателю, повторные игнорируются.
func (j *Job) record(result RecipientResult) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.recordLocked(result)
}

func (j *Job) recordLocked(result RecipientResult) bool {
	if _, exists := j.results[result.RecipientID]; exists {
		return false
	}
	j.results[result.RecipientID] = result
	if result.Status == ResultSent {
		j.successful++
	} else {
		j.failed++
	}
	if result.Error == ReasonCancelled {
		j.skipped++
	}
	return true
}

func (j *Job) finish(at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobStateDispatching {
		return
	}
	// Отмена, пришедшая после планирования последнего письма, ничего не остановила.
	if j.cancelled.Load() && j.skipped > 0 {
		j.state = JobStateCancelled
	} else {
		j.state = JobStateComplete
	}
	j.finishedAt = &at
}

func (j *Job) progressLocked() Progress {
	total := len(j.recipients)
	return Progress{
		Total:      total,
		Successful: j.successful,
		Failed:     j.failed,
		Pending:    total - j.successful - j.failed,
	}
}

package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/goroutine"
	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
	"github.com/ignatzorin/tender-portal/internal/validation"
)

const (
	EventProgress  = "notification.progress"
	EventCompleted = "notification.completed"
)

// JobStore хранит снимки рассылок, чтобы итог был доступен после завершения.
type JobStore interface {
	Save(ctx context.Context, report notification.Report) error
	Get(ctx context.Context, jobID uuid.UUID) (*notification.Report, error)
}

// ProgressBroadcaster доставляет события о ходе рассылки администратору.
type ProgressBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

type SelectionInput struct {
	Policy        string
	Status        string
	TenderID      *uuid.UUID
	SubmissionIDs []uuid.UUID
}

type StartRunInput struct {
	SelectionInput
	TemplateID    string
	CustomMessage string
	CreatedBy     uuid.UUID
	Wait          bool
}

type ProgressEvent struct {
	JobID    uuid.UUID                    `json:"job_id"`
	State    notification.JobState        `json:"state"`
	Progress notification.Progress        `json:"progress"`
	Result   notification.RecipientResult `json:"result"`
}

// RunUseCase собирает рассылку целиком: отбор, подготовку писем, отправку и хранение итога.
type RunUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
	selector       *notification.Selector
	renderer       *notification.Renderer
	dispatcher     *notification.Dispatcher
	store          JobStore
	broadcaster    ProgressBroadcaster
	log            logrus.FieldLogger

	mu   sync.RWMutex
	live map[uuid.UUID]*notification.Job
	wg   sync.WaitGroup
}

func NewRunUseCase(
	tenderRepo repository.TenderRepository,
	submissionRepo repository.SubmissionRepository,
	selector *notification.Selector,
	renderer *notification.Renderer,
	dispatcher *notification.Dispatcher,
	store JobStore,
	broadcaster ProgressBroadcaster,
	log logrus.FieldLogger,
) *RunUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RunUseCase{
		tenderRepo:     tenderRepo,
		submissionRepo: submissionRepo,
		selector:       selector,
		renderer:       renderer,
		dispatcher:     dispatcher,
		store:          store,
		broadcaster:    broadcaster,
		log:            log,
		live:           make(map[uuid.UUID]*notification.Job),
	}
}

// Start запускает рассылку. При Wait итог возвращается после отправки всех писем,
// иначе возвращается снимок подготовленной рассылки, а отправка идёт в фоне.
func (uc *RunUseCase) Start(ctx context.Context, input StartRunInput) (*notification.Report, error) {
	tpl, err := uc.renderer.Lookup(input.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl.RequiresCustomMessage() {
		if err := validation.ValidateCustomMessage(input.CustomMessage); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	recipients, titles, err := uc.selectRecipients(ctx, input.SelectionInput)
	if err != nil {
		return nil, err
	}
	return uc.launch(ctx, tpl.ID, input.CustomMessage, input.CreatedBy, recipients, titles, input.Wait)
}

// Get отдаёт снимок выполняющейся рассылки или сохранённый итог.
func (uc *RunUseCase) Get(ctx context.Context, jobID uuid.UUID) (*notification.Report, error) {
	if job, ok := uc.liveJob(jobID); ok {
		report := notification.BuildReport(job)
		return &report, nil
	}
	return uc.store.Get(ctx, jobID)
}

// Cancel до начала отправки отменяет рассылку целиком, во время отправки останавливает
// планирование новых писем.
func (uc *RunUseCase) Cancel(ctx context.Context, jobID uuid.UUID) (*notification.Report, error) {
	job, ok := uc.liveJob(jobID)
	if !ok {
		report, err := uc.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return nil, apperror.Newf(apperror.ErrCodeIllegalTransition,
			"рассылка в состоянии %q уже не может быть отменена", report.State)
	}

	if !job.Cancel() {
		return nil, apperror.Newf(apperror.ErrCodeIllegalTransition,
			"рассылка в состоянии %q уже не может быть отменена", job.State())
	}
	uc.log.WithField("job_id", jobID).Info("Рассылка отменена")

	report := notification.BuildReport(job)
	return &report, nil
}

// RetryFailed создаёт новую рассылку по получателям, которым не удалось доставить письмо.
func (uc *RunUseCase) RetryFailed(ctx context.Context, jobID, createdBy uuid.UUID, wait bool) (*notification.Report, error) {
	previous, err := uc.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !previous.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeConflict, "рассылка ещё выполняется")
	}

	var (
		recipients []*entity.Submission
		titles     map[uuid.UUID]string
	)
	failed := previous.FailedRecipientIDs()
	if len(failed) > 0 {
		recipients, titles, err = uc.selectRecipients(ctx, SelectionInput{SubmissionIDs: failed})
		if err != nil {
			return nil, err
		}
	}

	uc.log.WithFields(logrus.Fields{
		"previous_job_id": jobID,
		"recipients":      len(recipients),
	}).Info("Повторная рассылка по неудачным получателям")

	return uc.launch(ctx, previous.TemplateID, previous.CustomMessage, createdBy, recipients, titles, wait)
}

// PreviewRecipients показывает, кому уйдёт рассылка, ничего не отправляя.
func (uc *RunUseCase) PreviewRecipients(ctx context.Context, input SelectionInput) ([]*entity.Submission, error) {
	recipients, _, err := uc.selectRecipients(ctx, input)
	return recipients, err
}

// PreviewMessage готовит письмо для одной заявки.
func (uc *RunUseCase) PreviewMessage(ctx context.Context, templateID string, submissionID uuid.UUID, customMessage string) (notification.Rendered, error) {
	if _, err := uc.renderer.Lookup(templateID); err != nil {
		return notification.Rendered{}, err
	}

	sub, err := uc.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return notification.Rendered{}, err
	}
	tender, err := uc.tenderRepo.FindByID(ctx, sub.TenderID)
	if err != nil {
		return notification.Rendered{}, err
	}
	return uc.renderer.Render(templateID, sub, tender.Title, customMessage)
}

func (uc *RunUseCase) Templates() []notification.Template {
	return uc.renderer.Templates()
}

// Wait дожидается фоновых рассылок, используется при остановке сервера.
func (uc *RunUseCase) Wait() {
	uc.wg.Wait()
}

func (uc *RunUseCase) selectRecipients(ctx context.Context, input SelectionInput) ([]*entity.Submission, map[uuid.UUID]string, error) {
	policy, err := notification.ParsePolicy(input.Policy, input.Status)
	if err != nil {
		return nil, nil, err
	}

	tenders, err := uc.tenderRepo.List(ctx, repository.TenderFilter{})
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, 0, len(tenders))
	titles := make(map[uuid.UUID]string, len(tenders))
	for _, t := range tenders {
		ids = append(ids, t.ID)
		titles[t.ID] = t.Title
	}

	subs, err := uc.submissionRepo.List(ctx, repository.SubmissionFilter{
		TenderID: input.TenderID,
		IDs:      input.SubmissionIDs,
	})
	if err != nil {
		return nil, nil, err
	}

	recipients, err := uc.selector.Select(subs, policy, notification.NewTenderSet(ids...))
	if err != nil {
		return nil, nil, err
	}
	return recipients, titles, nil
}

func (uc *RunUseCase) launch(
	ctx context.Context,
	templateID notification.TemplateID,
	customMessage string,
	createdBy uuid.UUID,
	recipients []*entity.Submission,
	titles map[uuid.UUID]string,
	wait bool,
) (*notification.Report, error) {
	job := notification.NewJob(templateID, customMessage, recipients)
	job.CreatedBy = createdBy
	if err := job.Render(uc.renderer, titles); err != nil {
		return nil, err
	}

	snapshot := notification.BuildReport(job)
	if err := uc.store.Save(ctx, snapshot); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить рассылку")
	}
	uc.track(job)

	uc.log.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"template":   templateID,
		"recipients": snapshot.Total,
		"created_by": createdBy,
	}).Info("Рассылка подготовлена")

	// Отправка не зависит от жизни HTTP-запроса: остановить её можно только через Cancel.
	if wait {
		return uc.run(context.WithoutCancel(ctx), job)
	}

	uc.wg.Add(1)
	goroutine.SafeGoWithContext(context.WithoutCancel(ctx), func(ctx context.Context) {
		defer uc.wg.Done()
		if _, err := uc.run(ctx, job); err != nil {
			uc.log.WithError(err).WithField("job_id", job.ID).Error("Фоновая рассылка завершилась с ошибкой")
		}
	})
	return &snapshot, nil
}

func (uc *RunUseCase) run(ctx context.Context, job *notification.Job) (*notification.Report, error) {
	defer uc.untrack(job.ID)

	report, err := uc.dispatcher.Dispatch(ctx, job, uc)
	if err != nil {
		return nil, err
	}

	if err := uc.store.Save(ctx, *report); err != nil {
		uc.log.WithError(err).WithField("job_id", job.ID).Error("Не удалось сохранить итог рассылки")
	}
	uc.broadcast(job.CreatedBy, EventCompleted, report)
	return report, nil
}

// OnResult вызывается координатором рассылки после каждого записанного результата.
func (uc *RunUseCase) OnResult(job *notification.Job, result notification.RecipientResult, progress notification.Progress) {
	uc.broadcast(job.CreatedBy, EventProgress, ProgressEvent{
		JobID:    job.ID,
		State:    job.State(),
		Progress: progress,
		Result:   result,
	})
}

func (uc *RunUseCase) broadcast(userID uuid.UUID, event string, data any) {
	if uc.broadcaster == nil || userID == uuid.Nil {
		return
	}
	if err := uc.broadcaster.BroadcastToUser(userID, event, data); err != nil {
		uc.log.WithError(err).WithField("event", event).Warn("Не удалось отправить событие рассылки")
	}
}

func (uc *RunUseCase) track(job *notification.Job) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.live[job.ID] = job
}

func (uc *RunUseCase) untrack(jobID uuid.UUID) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.live, jobID)
}

func (uc *RunUseCase) liveJob(jobID uuid.UUID) (*notification.Job, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	job, ok := uc.live[jobID]
	return job, ok
}

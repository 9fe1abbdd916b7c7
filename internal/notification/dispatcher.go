package notification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/goroutine"
	"github.com/ignatzorin/tender-portal/internal/metrics"
	"github.com/ignatzorin/tender-portal/internal/validation"
)

const (
	DefaultConcurrency = 10
	DefaultSendTimeout = 30 * time.Second

	reasonSendError = "send_error"
)

// Sender доставляет письмо через внешний канал.
type Sender interface {
	Send(ctx context.Context, address, subject, body string) error
}

// ProgressObserver получает каждый записанный результат. Вызывается из одной горутины.
type ProgressObserver interface {
	OnResult(job *Job, result RecipientResult, progress Progress)
}

type DispatcherConfig struct {
	Concurrency int
	SendTimeout time.Duration
}

// Dispatcher рассылает письма с ограниченным числом одновременных отправок.
// Результаты принимает единственная горутина-координатор, она же их и записывает.
type Dispatcher struct {
	sender      Sender
	concurrency int
	sendTimeout time.Duration
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, log logrus.FieldLogger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		sender:      sender,
		concurrency: cfg.Concurrency,
		sendTimeout: cfg.SendTimeout,
		log:         log,
		now:         time.Now,
	}
}

// Dispatch отправляет подготовленные письма и возвращает итог. Ошибки доставки
// не возвращаются, они попадают в результаты получателей.
func (d *Dispatcher) Dispatch(ctx context.Context, job *Job, observer ProgressObserver) (*Report, error) {
	started, err := job.beginDispatch()
	if err != nil {
		return nil, err
	}
	if !started {
		report := BuildReport(job)
		return &report, nil
	}

	log := d.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"template": job.TemplateID,
	})
	startedAt := d.now()
	messages := job.Messages()
	log.WithField("total", len(messages)).Info("Начата рассылка уведомлений")

	// Слоты ограничивают число одновременных отправок, completions читает только координатор.
	slots := make(chan struct{}, d.concurrency)
	completions := make(chan RecipientResult)

	var wg sync.WaitGroup
	go d.schedule(ctx, job, messages, slots, completions, &wg)

	for received := 0; received < len(messages); received++ {
		result := <-completions
		if !job.record(result) {
			continue
		}
		if result.Status == ResultFailed && result.Error != ReasonNoEmail && result.Error != ReasonCancelled {
			log.WithFields(logrus.Fields{
				"recipient_id": result.RecipientID,
				"error":        result.Error,
			}).Warn("Не удалось отправить уведомление")
		}
		if observer != nil {
			observer.OnResult(job, result, job.Progress())
		}
	}
	wg.Wait()

	job.finish(d.now())
	metrics.DispatchDuration.WithLabelValues(string(job.TemplateID)).Observe(d.now().Sub(startedAt).Seconds())

	report := BuildReport(job)
	log.WithFields(logrus.Fields{
		"state":      report.State,
		"successful": report.Successful,
		"failed":     report.Failed,
	}).Info("Рассылка уведомлений завершена")
	return &report, nil
}

// schedule занимает слот и только потом проверяет флаг отмены, поэтому после Cancel
// новая отправка не начнётся. Письма без адреса сразу записываются как неудачные,
// внешний канал для них не вызывается.
func (d *Dispatcher) schedule(ctx context.Context, job *Job, messages []Message, slots chan struct{}, completions chan<- RecipientResult, wg *sync.WaitGroup) {
	for i, msg := range messages {
		if validation.ValidateEmail(msg.Address) != nil {
			completions <- d.skipped(job, msg, ReasonNoEmail)
			continue
		}

		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			d.skipRest(job, messages[i:], completions)
			return
		}
		if job.IsCancelled() || ctx.Err() != nil {
			<-slots
			d.skipRest(job, messages[i:], completions)
			return
		}

		wg.Add(1)
		go func(msg Message) {
			defer wg.Done()
			result := d.send(ctx, job, msg)
			completions <- result
			<-slots
		}(msg)
	}
}

func (d *Dispatcher) skipRest(job *Job, rest []Message, completions chan<- RecipientResult) {
	for _, msg := range rest {
		reason := ReasonCancelled
		if validation.ValidateEmail(msg.Address) != nil {
			reason = ReasonNoEmail
		}
		completions <- d.skipped(job, msg, reason)
	}
}

func (d *Dispatcher) skipped(job *Job, msg Message, reason string) RecipientResult {
	metrics.NotificationsFailed.WithLabelValues(string(job.TemplateID), reason).Inc()
	return RecipientResult{
		RecipientID: msg.RecipientID,
		Address:     msg.Address,
		Status:      ResultFailed,
		Error:       reason,
		Timestamp:   d.now(),
	}
}

func (d *Dispatcher) send(ctx context.Context, job *Job, msg Message) RecipientResult {
	metrics.SendsInFlight.Inc()
	defer metrics.SendsInFlight.Dec()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := goroutine.SafeCall(func() error {
		return d.sender.Send(sendCtx, msg.Address, msg.Subject, msg.Body)
	})

	result := RecipientResult{
		RecipientID: msg.RecipientID,
		Address:     msg.Address,
		Status:      ResultSent,
		Timestamp:   d.now(),
	}
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(job.TemplateID), reasonSendError).Inc()
		result.Status = ResultFailed
		result.Error = err.Error()
		return result
	}
	metrics.NotificationsSent.WithLabelValues(string(job.TemplateID)).Inc()
	return result
}

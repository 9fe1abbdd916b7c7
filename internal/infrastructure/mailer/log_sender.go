package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender только пишет письма в лог. Используется в разработке вместо SES.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"to":      address,
		"subject": subject,
		"length":  len(body),
	}).Info("Письмо отправлено (log driver)")
	return nil
}

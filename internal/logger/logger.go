package logger

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/goroutine"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер. В development пишет текстом, иначе JSON.
func Init(level string, development bool) *logrus.Logger {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if development {
		SetTextFormatter()
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}

	// Паники в фоновых горутинах пишем в тот же логгер.
	goroutine.SetLogger(Log)
	return Log
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// Component возвращает логгер с полем component.
func Component(name string) logrus.FieldLogger {
	if Log == nil {
		return logrus.StandardLogger().WithField("component", name)
	}
	return Log.WithField("component", name)
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

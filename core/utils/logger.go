package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a thin wrapper so callers depend on a small surface
// instead of the logrus API.
type Logger struct {
	l *logrus.Logger
}

func NewLogger() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Logger{l: l}
}

// Configure applies the level and formatter from config. Unknown
// levels fall back to info. Production output is JSON.
func (lg *Logger) Configure(level, appEnv string) {
	if lg == nil || lg.l == nil {
		return
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lg.l.Warnf("nivel de log desconocido %q, se usa info", level)
		parsed = logrus.InfoLevel
	}
	lg.l.SetLevel(parsed)
	if strings.ToLower(appEnv) == "production" {
		lg.l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
}

func (lg *Logger) Printf(format string, args ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Infof(format, args...)
}

func (lg *Logger) Errorf(format string, args ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Errorf(format, args...)
}

func (lg *Logger) Debugf(format string, args ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Debugf(format, args...)
}

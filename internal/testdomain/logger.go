package testdomain

import (
	"log/slog"

	"github.com/google/uuid"
)

// ExtendedLoggerName is the fixed name of ExtendedLogger
const ExtendedLoggerName = "LoggerExtended"

// Logger writes messages tagged with its name
type Logger interface {
	Name() string
	Log(message string)
}

// ConsoleLogger gets a fresh random name per instance, which makes
// lifetime behaviour observable
type ConsoleLogger struct {
	name string
}

// Init assigns the instance name
func (l *ConsoleLogger) Init() error {
	l.name = uuid.NewString()
	return nil
}

func (l *ConsoleLogger) Name() string {
	return l.name
}

func (l *ConsoleLogger) Log(message string) {
	slog.Info(message, "logger", l.Name())
}

// ExtendedLogger always reports ExtendedLoggerName
type ExtendedLogger struct{}

func (ExtendedLogger) Name() string {
	return ExtendedLoggerName
}

func (l ExtendedLogger) Log(message string) {
	slog.Info(message, "logger", l.Name())
}

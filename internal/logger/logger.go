package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	base *logrus.Logger
	once sync.Once
)

// Init sets up the shared logger once with env-configured level.
func Init() {
	once.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		base.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	})
}

func parseLevel(raw string) logrus.Level {
	level := strings.TrimSpace(strings.ToLower(raw))
	if level == "" {
		return logrus.InfoLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func ensure() {
	if base == nil {
		Init()
	}
}

// Debugf logs a debug message with component/operation context.
func Debugf(component, operation, format string, args ...interface{}) {
	ensure()
	base.Debugf("%s -> %s: %s", component, operation, fmt.Sprintf(format, args...))
}

// Infof logs an informational message with component/operation context.
func Infof(component, operation, format string, args ...interface{}) {
	ensure()
	base.Infof("%s -> %s: %s", component, operation, fmt.Sprintf(format, args...))
}

// Warnf logs a warning message with component/operation context.
func Warnf(component, operation, format string, args ...interface{}) {
	ensure()
	base.Warnf("%s -> %s: %s", component, operation, fmt.Sprintf(format, args...))
}

// Error logs an error with component/operation context.
func Error(component, operation string, err error) {
	ensure()
	if err == nil {
		return
	}
	base.Errorf("%s -> %s: %s", component, operation, err.Error())
}

// Errorf logs a formatted error message with component/operation context.
func Errorf(component, operation, format string, args ...interface{}) {
	ensure()
	base.Errorf("%s -> %s: %s", component, operation, fmt.Sprintf(format, args...))
}

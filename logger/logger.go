package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Fields are key/value pairs attached to one or more log lines.
type Fields map[string]interface{}

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
	WithFields(Fields) Logger
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new text logger writing to STDERR.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	return newLogger(serviceName, level, stackDumpOnPanic, &log.TextFormatter{FullTimestamp: true})
}

// NewJSONLogger will create a new logger that writes one JSON object per line.
// Use it for the web service where output is consumed by machines.
func NewJSONLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	return newLogger(serviceName, level, stackDumpOnPanic, &log.JSONFormatter{})
}

func newLogger(serviceName string, level string, stackDumpOnPanic bool, f log.Formatter) *LoggerImpl {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(f)
	logLevel, err := log.ParseLevel(level)
	if err == nil {
		l.SetLevel(logLevel)
	} else {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	entry := l.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: entry, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in trace mode or when PrintStackDump is set).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump { // if the user wants a stack dump...
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else { // else log the message and quit without a stack dump...
		l.Logger.Fatal(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
// Call Panic() to get a stack dump instead.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// WithFields returns a child logger that adds fields f to every line.
func (l *LoggerImpl) WithFields(f Fields) Logger {
	return &LoggerImpl{
		Logger:         l.Logger.WithFields(log.Fields(f)),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// SetOutput will set the log output to the Writer supplied.
// Child loggers created by WithFields share the output.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	l.Logger.Logger.SetOutput(writer)
}

// Discard returns a logger that drops everything.
// Use it where a component needs a Logger but the caller has none.
func Discard() Logger {
	l := NewLogger("discard", "error", false)
	l.SetOutput(io.Discard)
	return l
}

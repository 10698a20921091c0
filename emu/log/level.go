package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

// Level mirrors logrus levels, most severe first.
type Level uint32

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

var disabled bool

// Disable turns off all logging, whatever the level or module.
func Disable() { disabled = true }

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) { logrus.SetOutput(w) }

func init() {
	logrus.SetLevel(logrus.DebugLevel)
}

func emit(lvl Level, entry *logrus.Entry, msg string) {
	switch lvl {
	case DebugLevel:
		entry.Debug(msg)
	case InfoLevel:
		entry.Info(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	case FatalLevel:
		entry.Fatal(msg)
	case PanicLevel:
		entry.Panic(msg)
	}
}

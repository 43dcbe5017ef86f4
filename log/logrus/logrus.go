// Package logrus adapts github.com/sirupsen/logrus to the guardrail.Logger
// interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/venntor/guardrail"
)

var _ guardrail.Logger = Logger{}

// Logger wraps a *logrus.Entry.
type Logger struct{ E *logrus.Entry }

func (l Logger) Debug(msg string, f guardrail.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}

func (l Logger) Info(msg string, f guardrail.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}

func (l Logger) Warn(msg string, f guardrail.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}

func (l Logger) Error(msg string, f guardrail.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

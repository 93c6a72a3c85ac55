// Package logruslog adapts github.com/sirupsen/logrus to memo.Logger.
package logruslog

import (
	"github.com/sirupsen/logrus"

	"github.com/IvanBrykalov/memoflight/memo"
)

// Logger wraps a *logrus.Entry.
type Logger struct{ E *logrus.Entry }

// New returns a memo.Logger backed by e.
func New(e *logrus.Entry) Logger { return Logger{E: e} }

func (l Logger) Debug(msg string, f memo.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f memo.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f memo.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f memo.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }

var _ memo.Logger = Logger{}

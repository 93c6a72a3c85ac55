// Package zaplog adapts go.uber.org/zap to memo.Logger.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/memoflight/memo"
)

// Logger wraps a *zap.Logger.
type Logger struct{ L *zap.Logger }

// New returns a memo.Logger backed by l.
func New(l *zap.Logger) Logger { return Logger{L: l} }

func (z Logger) Debug(msg string, f memo.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f memo.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f memo.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f memo.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f memo.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

var _ memo.Logger = Logger{}

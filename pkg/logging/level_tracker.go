package logging

import (
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// levelTracker records whether any warning or error entry was written so a command can pick its
// exit status after the fact.
type levelTracker struct {
	zapcore.Core
	warnings *atomic.Bool
	errors   *atomic.Bool
}

func (t *levelTracker) With(fields []zapcore.Field) zapcore.Core {
	return &levelTracker{
		Core:     t.Core.With(fields),
		warnings: t.warnings,
		errors:   t.errors,
	}
}

func (t *levelTracker) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level >= zapcore.WarnLevel {
		ce = ce.AddCore(e, t)
	}
	return t.Core.Check(e, ce)
}

func (t *levelTracker) Enabled(lvl zapcore.Level) bool {
	return t.Core.Enabled(lvl) || lvl >= zapcore.WarnLevel
}

// Write only marks the flags; the wrapped core already added itself during Check.
func (t *levelTracker) Write(e zapcore.Entry, _ []zapcore.Field) error {
	switch {
	case e.Level >= zapcore.ErrorLevel:
		if t.errors != nil {
			t.errors.Store(true)
		}
	case e.Level == zapcore.WarnLevel:
		if t.warnings != nil {
			t.warnings.Store(true)
		}
	}
	return nil
}

func (t *levelTracker) Sync() error {
	return t.Core.Sync()
}

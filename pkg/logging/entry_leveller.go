package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters log entries by logger name. A level configured for
// `bundle` applies to `bundle.go` and any other descendant unless that name has its own level.
type EntryLeveller struct {
	zapcore.Core

	levels *sync.Map // map[string]zapcore.Level
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{Core: core, levels: &sync.Map{}}
	for k, v := range levels {
		el.levels.Store(k, v)
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{
		Core:   el.Core.With(f),
		levels: el.levels,
	}
}

// levelFor walks from the full logger name up through its parents and returns the first configured level.
// Results are memoised under the full name.
func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	if lvl, ok := el.levels.Load(name); ok {
		return lvl.(zapcore.Level), true
	}
	module := name
	for module != "" {
		idx := strings.LastIndexByte(module, '.')
		if idx < 0 {
			module = ""
		} else {
			module = module[:idx]
		}
		if lvl, ok := el.levels.Load(module); ok {
			el.levels.Store(name, lvl)
			return lvl.(zapcore.Level), true
		}
	}
	return 0, false
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	level, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < level {
		return ce
	}
	return ce.AddCore(e, el)
}

// Enabled must let through entries below the core's level, since a per-name level may be lower.
func (el *EntryLeveller) Enabled(zapcore.Level) bool {
	return true
}

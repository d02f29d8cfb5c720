package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEntryLeveller(t *testing.T) {
	tests := []struct {
		name   string
		levels map[string]zapcore.Level
		logger string
		level  zapcore.Level
		want   bool
	}{
		{name: "unconfigured falls back to core", logger: "synth", level: zapcore.DebugLevel, want: false},
		{name: "unconfigured info", logger: "synth", level: zapcore.InfoLevel, want: true},
		{
			name:   "lowered for name",
			levels: map[string]zapcore.Level{"synth": zapcore.DebugLevel},
			logger: "synth", level: zapcore.DebugLevel, want: true,
		},
		{
			name:   "inherited from parent",
			levels: map[string]zapcore.Level{"bundle": zapcore.WarnLevel},
			logger: "bundle.go.stdout", level: zapcore.InfoLevel, want: false,
		},
		{
			name:   "child overrides parent",
			levels: map[string]zapcore.Level{"bundle": zapcore.WarnLevel, "bundle.go": zapcore.DebugLevel},
			logger: "bundle.go", level: zapcore.DebugLevel, want: true,
		},
		{
			name:   "root level",
			levels: map[string]zapcore.Level{"": zapcore.ErrorLevel},
			logger: "diff", level: zapcore.WarnLevel, want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			log := zap.New(NewEntryLeveller(core, tt.levels)).Named(tt.logger)

			if ce := log.Check(tt.level, "message"); ce != nil {
				ce.Write()
			}
			assert.Equal(t, tt.want, logs.Len() == 1)
		})
	}
}

func TestParseLevels(t *testing.T) {
	assert.Equal(t,
		map[string]zapcore.Level{"synth": zapcore.DebugLevel, "bundle.go": zapcore.WarnLevel, "query": zapcore.ErrorLevel},
		ParseLevels("synth=debug, bundle.go=warn,bad,other=nope,query=ERROR"),
	)
}

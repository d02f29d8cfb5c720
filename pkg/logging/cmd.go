package logging

import (
	"bytes"
	"context"
	"os/exec"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerWriter struct {
	logger *zap.Logger
	level  zapcore.Level
}

type CommandLogger struct {
	RootLogger  *zap.Logger
	StdoutLevel zapcore.Level
	StderrLevel zapcore.Level
}

// Write logs each non-empty line of p as a separate entry.
func (w loggerWriter) Write(p []byte) (n int, err error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if ce := w.logger.Check(w.level, string(line)); ce != nil {
			ce.Write()
		}
	}
	return len(p), nil
}

// Command creates an exec.Cmd whose output is logged to cfg.RootLogger (as `stdout` and `stderr` children)
// instead of being written to the terminal.
func Command(ctx context.Context, cfg CommandLogger, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdout = &loggerWriter{logger: cfg.RootLogger.Named("stdout"), level: cfg.StdoutLevel}
	cmd.Stderr = &loggerWriter{logger: cfg.RootLogger.Named("stderr"), level: cfg.StderrLevel}
	return cmd
}

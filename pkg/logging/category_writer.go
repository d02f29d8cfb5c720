package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// CategoryWriter is a core that writes every named entry into `<LogRootPath>/<category>.log`, where the
// category is the first segment of the logger name (`synth`, `bundle`, ...). Unnamed entries are dropped.
type CategoryWriter struct {
	Encoder     zapcore.Encoder
	LogRootPath string
	files       *sync.Map // map[string]*os.File
}

func NewCategoryWriter(enc zapcore.Encoder, logRootPath string) *CategoryWriter {
	return &CategoryWriter{
		Encoder:     enc,
		LogRootPath: logRootPath,
		files:       &sync.Map{},
	}
}

func (c *CategoryWriter) Enabled(lvl zapcore.Level) bool {
	return true
}

func (c *CategoryWriter) With(fields []zapcore.Field) zapcore.Core {
	clone := &CategoryWriter{
		Encoder:     c.Encoder.Clone(),
		LogRootPath: c.LogRootPath,
		files:       c.files,
	}
	for i := range fields {
		fields[i].AddTo(clone.Encoder)
	}
	return clone
}

func (c *CategoryWriter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(ent, c)
}

func (c *CategoryWriter) file(categ string) (*os.File, error) {
	if f, ok := c.files.Load(categ); ok {
		return f.(*os.File), nil
	}
	if err := os.MkdirAll(c.LogRootPath, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(c.LogRootPath, categ+".log"), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	existing, loaded := c.files.LoadOrStore(categ, f)
	if loaded {
		f.Close()
		return existing.(*os.File), nil
	}
	// Truncate only once this handle is known to be the one in the map, in case of a concurrent open.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, f.Truncate(0)
}

func (c *CategoryWriter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	categ, rest, _ := strings.Cut(ent.LoggerName, ".")
	categ = strings.ReplaceAll(strings.TrimSpace(categ), string(os.PathSeparator), "_")
	if categ == "" {
		return nil
	}
	ent.LoggerName = rest

	f, err := c.file(categ)
	if err != nil {
		return err
	}
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		return f.Sync()
	}
	return nil
}

func (c *CategoryWriter) Sync() error {
	var errs error
	c.files.Range(func(_, value any) bool {
		errs = errors.Join(errs, value.(*os.File).Sync())
		return true
	})
	return errs
}

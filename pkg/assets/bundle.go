package assets

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/google/shlex"
	kio "github.com/grace-platform/grace/pkg/io"
	"github.com/grace-platform/grace/pkg/logging"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type (
	// BuildFunc compiles pkg (relative to root) into the executable at out.
	BuildFunc func(ctx context.Context, root, pkg, out string) error

	Bundler struct {
		Catalog *Catalog
		Build   BuildFunc
		Workers int
		// Progress receives a progress bar, if set. It is usually the terminal.
		Progress      io.Writer
		ProgressWidth int
	}
)

// BinaryName is the executable that the `provided` runtimes start.
const BinaryName = "bootstrap"

// zipModTime is stamped on every bundle entry so that identical binaries zip to identical bytes.
var zipModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func NewBundler(catalog *Catalog) *Bundler {
	return &Bundler{
		Catalog: catalog,
		Build:   GoBuilder{}.Build,
		Workers: 4,
	}
}

// GoBuilder cross-compiles Lambda handlers for the arm64 custom runtime. Compiler output is logged under
// `bundle.stdout` and `bundle.stderr`.
type GoBuilder struct {
	// Flags are passed to `go build` ahead of the defaults.
	Flags []string
}

// ParseBuildFlags splits s as a shell would, for use as [GoBuilder.Flags].
func ParseBuildFlags(s string) ([]string, error) {
	flags, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid build flags %q: %w", s, err)
	}
	return flags, nil
}

func (g GoBuilder) Build(ctx context.Context, root, pkg, out string) error {
	log := logging.GetLogger(ctx).Named("bundle")
	args := append([]string{"build"}, g.Flags...)
	args = append(args, "-trimpath", "-tags", "lambda.norpc", "-ldflags", "-s -w", "-o", out, pkg)
	cmd := logging.Command(ctx,
		logging.CommandLogger{RootLogger: log, StdoutLevel: zap.DebugLevel, StderrLevel: zap.WarnLevel},
		"go", args...,
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GOOS=linux", "GOARCH=arm64", "CGO_ENABLED=0")
	log.Debug("Building handler", zap.String("package", pkg), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build %s: %w", pkg, err)
	}
	return nil
}

// Bundle builds the named handlers, or every handler in the catalog if none are named, and returns the
// zipped bundles at their catalog keys.
func (b *Bundler) Bundle(ctx context.Context, handlers ...string) ([]kio.File, error) {
	if len(handlers) == 0 {
		handlers = b.Catalog.Handlers()
	}
	log := logging.GetLogger(ctx).Named("bundle")

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	pool := pond.New(workers, len(handlers)+1)
	defer pool.StopAndWait()

	var bar *progressbar.ProgressBar
	if b.Progress != nil {
		opts := []progressbar.Option{
			progressbar.OptionSetWriter(b.Progress),
			progressbar.OptionSetDescription("bundling"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		}
		if b.ProgressWidth > 0 {
			opts = append(opts, progressbar.OptionSetWidth(b.ProgressWidth))
		}
		bar = progressbar.NewOptions(len(handlers), opts...)
	}

	var (
		mu    sync.Mutex
		files []kio.File
		errs  error
	)
	group := pool.Group()
	for _, h := range handlers {
		h := h
		group.Submit(func() {
			f, err := b.bundle(ctx, h)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("could not bundle %s: %w", h, err))
			} else {
				files = append(files, f)
				log.Info("Bundled handler", zap.String("handler", h), logging.FileField(f.Path()), zap.Int("bytes", len(f.Content)))
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		})
	}
	group.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	if errs != nil {
		return nil, errs
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path() < files[j].Path() })
	return files, nil
}

func (b *Bundler) bundle(ctx context.Context, handler string) (*kio.RawFile, error) {
	src, ok := b.Catalog.Sources[handler]
	if !ok {
		return nil, fmt.Errorf("unknown handler %q", handler)
	}
	key, err := b.Catalog.Key(handler)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "grace-bundle-"+handler)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	bin := filepath.Join(dir, BinaryName)
	if err := b.Build(ctx, b.Catalog.Root, src.Package, bin); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(bin)
	if err != nil {
		return nil, fmt.Errorf("could not read built binary: %w", err)
	}
	zipped, err := Zip(BinaryName, content)
	if err != nil {
		return nil, err
	}
	return &kio.RawFile{FPath: key, Content: zipped}, nil
}

// Zip archives a single executable.
func Zip(name string, content []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: zipModTime}
	hdr.SetMode(0755)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

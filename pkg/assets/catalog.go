// Package assets stages the Lambda handlers' deployment packages: it fingerprints each handler's
// sources to address its bundle in the asset bucket, and builds the bundles.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// Source is what goes into one handler's bundle.
	Source struct {
		Handler string
		// Package is the Go package of the handler's main, relative to the catalog root.
		Package string
		// Include and Exclude are doublestar patterns, relative to the catalog root, of the files whose content
		// changes the bundle.
		Include []string
		Exclude []string
	}

	// Catalog resolves handlers to content-addressed keys in the asset bucket.
	Catalog struct {
		Root    string
		Bucket  string
		Prefix  string
		Sources map[string]Source

		fsys fs.FS

		mu     sync.Mutex
		hashes map[string]string
	}
)

const (
	DefaultPrefix = "assets/"
	// hashLength is the number of hex digits of the content hash used in keys.
	hashLength = 16
)

// DefaultSources lists every handler under `cmd/`. A bundle depends on its main package and on any
// non-test Go file under `pkg/`, along with the module files.
func DefaultSources(handlers ...string) map[string]Source {
	sources := make(map[string]Source, len(handlers))
	for _, h := range handlers {
		sources[h] = Source{
			Handler: h,
			Package: "./cmd/" + h,
			Include: []string{"go.mod", "go.sum", "cmd/" + h + "/**/*.go", "pkg/**/*.go", "pkg/**/*.sql"},
			Exclude: []string{"**/*_test.go", "**/testdata/**"},
		}
	}
	return sources
}

func NewCatalog(root, bucket string, sources map[string]Source) *Catalog {
	return &Catalog{
		Root:    root,
		Bucket:  bucket,
		Prefix:  DefaultPrefix,
		Sources: sources,
		fsys:    os.DirFS(root),
		hashes:  make(map[string]string),
	}
}

// Location implements the stacks' asset resolver: `<Prefix><hash>.zip` in the catalog's bucket.
func (c *Catalog) Location(handler string) (string, string, error) {
	key, err := c.Key(handler)
	if err != nil {
		return "", "", err
	}
	return c.Bucket, key, nil
}

func (c *Catalog) Key(handler string) (string, error) {
	h, err := c.Hash(handler)
	if err != nil {
		return "", err
	}
	return c.Prefix + h[:hashLength] + ".zip", nil
}

// Hash fingerprints the handler's name and its source files. It is computed once per catalog.
func (c *Catalog) Hash(handler string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.hashes[handler]; ok {
		return h, nil
	}
	src, ok := c.Sources[handler]
	if !ok {
		return "", fmt.Errorf("unknown handler %q", handler)
	}
	files, err := c.Files(src)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no source files for handler %q under %s", handler, c.Root)
	}

	sum := sha256.New()
	fmt.Fprintf(sum, "%s\x00%s\x00", src.Handler, src.Package)
	for _, f := range files {
		content, err := fs.ReadFile(c.fsys, f)
		if err != nil {
			return "", fmt.Errorf("could not read %s: %w", f, err)
		}
		fmt.Fprintf(sum, "%s\x00%d\x00", f, len(content))
		sum.Write(content)
	}
	h := hex.EncodeToString(sum.Sum(nil))
	c.hashes[handler] = h
	return h, nil
}

// Files returns the sorted paths matched by src's includes and not by its excludes.
func (c *Catalog) Files(src Source) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range src.Include {
		matches, err := doublestar.Glob(c.fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			excluded, err := matchesAny(src.Exclude, m)
			if err != nil {
				return nil, err
			}
			if !excluded {
				seen[m] = struct{}{}
			}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		if info, err := fs.Stat(c.fsys, f); err == nil && info.IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, path)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Handlers returns the catalog's handler names, sorted.
func (c *Catalog) Handlers() []string {
	names := make([]string, 0, len(c.Sources))
	for h := range c.Sources {
		names = append(names, h)
	}
	sort.Strings(names)
	return names
}

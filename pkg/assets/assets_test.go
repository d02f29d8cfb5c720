package assets

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"testing/fstest"

	kio "github.com/grace-platform/grace/pkg/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(files fstest.MapFS) *Catalog {
	c := NewCatalog("/src/grace", "grace-assets", DefaultSources("tagupdater", "audithandler"))
	c.fsys = files
	return c
}

func moduleFS() fstest.MapFS {
	return fstest.MapFS{
		"go.mod":                                   {Data: []byte("module github.com/grace-platform/grace\n")},
		"go.sum":                                   {Data: []byte("")},
		"cmd/tagupdater/main.go":                   {Data: []byte("package main\n")},
		"cmd/audithandler/main.go":                 {Data: []byte("package main\n\nfunc main() {}\n")},
		"pkg/lambda/tagupdater/tagupdater.go":      {Data: []byte("package tagupdater\n")},
		"pkg/lambda/tagupdater/tagupdater_test.go": {Data: []byte("package tagupdater\n")},
		"pkg/lambda/dbinit/schema.sql":             {Data: []byte("CREATE SCHEMA audit;")},
		"README.md":                                {Data: []byte("# GRACE")},
	}
}

func TestCatalog_Files(t *testing.T) {
	c := testCatalog(moduleFS())
	files, err := c.Files(c.Sources["tagupdater"])
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cmd/tagupdater/main.go",
		"go.mod",
		"go.sum",
		"pkg/lambda/dbinit/schema.sql",
		"pkg/lambda/tagupdater/tagupdater.go",
	}, files)
}

func TestCatalog_Hash(t *testing.T) {
	tests := []struct {
		name    string
		handler string
		modify  func(fstest.MapFS)
		changed bool
	}{
		{
			name:    "unrelated file",
			handler: "tagupdater",
			modify:  func(fs fstest.MapFS) { fs["README.md"] = &fstest.MapFile{Data: []byte("# changed")} },
		},
		{
			name:    "test file",
			handler: "tagupdater",
			modify: func(fs fstest.MapFS) {
				fs["pkg/lambda/tagupdater/tagupdater_test.go"] = &fstest.MapFile{Data: []byte("package tagupdater // changed\n")}
			},
		},
		{
			name:    "other handler's main",
			handler: "tagupdater",
			modify: func(fs fstest.MapFS) {
				fs["cmd/audithandler/main.go"] = &fstest.MapFile{Data: []byte("package main // changed\n")}
			},
		},
		{
			name:    "shared package",
			handler: "tagupdater",
			modify: func(fs fstest.MapFS) {
				fs["pkg/lambda/tagupdater/tagupdater.go"] = &fstest.MapFile{Data: []byte("package tagupdater // changed\n")}
			},
			changed: true,
		},
		{
			name:    "new file",
			handler: "audithandler",
			modify: func(fs fstest.MapFS) {
				fs["pkg/ledger/ledger.go"] = &fstest.MapFile{Data: []byte("package ledger\n")}
			},
			changed: true,
		},
		{
			name:    "embedded schema",
			handler: "audithandler",
			modify: func(fs fstest.MapFS) {
				fs["pkg/lambda/dbinit/schema.sql"] = &fstest.MapFile{Data: []byte("CREATE SCHEMA audit2;")}
			},
			changed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := testCatalog(moduleFS()).Hash(tt.handler)
			require.NoError(t, err)

			files := moduleFS()
			tt.modify(files)
			after, err := testCatalog(files).Hash(tt.handler)
			require.NoError(t, err)

			if tt.changed {
				assert.NotEqual(t, before, after)
			} else {
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestCatalog_HandlersHashDifferently(t *testing.T) {
	files := moduleFS()
	files["cmd/audithandler/main.go"] = &fstest.MapFile{Data: []byte("package main\n")}
	c := testCatalog(files)

	a, err := c.Hash("tagupdater")
	require.NoError(t, err)
	b, err := c.Hash("audithandler")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCatalog_Location(t *testing.T) {
	c := testCatalog(moduleFS())
	h, err := c.Hash("tagupdater")
	require.NoError(t, err)

	bucket, key, err := c.Location("tagupdater")
	require.NoError(t, err)
	assert.Equal(t, "grace-assets", bucket)
	assert.Equal(t, "assets/"+h[:16]+".zip", key)

	_, _, err = c.Location("nosuchhandler")
	assert.ErrorContains(t, err, `unknown handler "nosuchhandler"`)

	empty := testCatalog(fstest.MapFS{})
	_, _, err = empty.Location("tagupdater")
	assert.ErrorContains(t, err, "no source files")
}

func TestBundler(t *testing.T) {
	c := testCatalog(moduleFS())
	var built []string
	b := &Bundler{
		Catalog: c,
		Workers: 1,
		Build: func(ctx context.Context, root, pkg, out string) error {
			built = append(built, pkg)
			assert.Equal(t, "/src/grace", root)
			return os.WriteFile(out, []byte("binary of "+pkg), 0755)
		},
	}
	files, err := b.Bundle(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"./cmd/audithandler", "./cmd/tagupdater"}, built)
	require.Len(t, files, 2)

	for _, f := range files {
		raw, ok := f.(*kio.RawFile)
		require.True(t, ok)

		zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
		require.NoError(t, err)
		require.Len(t, zr.File, 1)
		assert.Equal(t, BinaryName, zr.File[0].Name)
		assert.Equal(t, os.FileMode(0755), zr.File[0].Mode().Perm())

		rc, err := zr.File[0].Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Contains(t, string(content), "binary of ./cmd/")
	}

	tagKey, err := c.Key("tagupdater")
	require.NoError(t, err)
	paths := []string{files[0].Path(), files[1].Path()}
	assert.Contains(t, paths, tagKey)
}

func TestBundler_Errors(t *testing.T) {
	b := &Bundler{
		Catalog: testCatalog(moduleFS()),
		Workers: 2,
		Build: func(ctx context.Context, root, pkg, out string) error {
			if pkg == "./cmd/audithandler" {
				return errors.New("compile error")
			}
			return os.WriteFile(out, []byte("ok"), 0755)
		},
	}
	files, err := b.Bundle(context.Background(), "audithandler", "tagupdater", "missing")
	assert.Nil(t, files)
	assert.ErrorContains(t, err, "could not bundle audithandler: compile error")
	assert.ErrorContains(t, err, `could not bundle missing: unknown handler "missing"`)
}

func TestZip_Reproducible(t *testing.T) {
	a, err := Zip(BinaryName, []byte("same"))
	require.NoError(t, err)
	b, err := Zip(BinaryName, []byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseBuildFlags(t *testing.T) {
	flags, err := ParseBuildFlags(`-v -gcflags 'all=-N -l' -tags "lambda sqlite"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-v", "-gcflags", "all=-N -l", "-tags", "lambda sqlite"}, flags)

	flags, err = ParseBuildFlags("")
	require.NoError(t, err)
	assert.Empty(t, flags)
}

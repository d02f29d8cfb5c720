package io

import (
	"io"
	"os"
	"path/filepath"
)

// File is a single output file, addressed relative to the output directory.
type File interface {
	Path() string
	WriteTo(io.Writer) (int64, error)
}

// RawFile is a file whose content is already in memory, such as a synthesized template.
type RawFile struct {
	FPath   string
	Content []byte
}

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}

// FileRef is a lightweight representation of a file on disk, deferring reading its contents until `WriteTo` is called.
type FileRef struct {
	FPath      string
	SourcePath string
}

func (r *FileRef) Path() string {
	return r.FPath
}

func (r *FileRef) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(filepath.Clean(r.SourcePath))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

// CountingWriter tracks the number of bytes written through it.
type CountingWriter struct {
	Delegate     io.Writer
	BytesWritten int64
}

func (w *CountingWriter) Write(p []byte) (int, error) {
	n, err := w.Delegate.Write(p)
	w.BytesWritten += int64(n)
	return n, err
}

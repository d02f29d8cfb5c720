package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alitto/pond"
	"github.com/grace-platform/grace/pkg/closenicely"
)

// OutputTo writes every file under dest, creating directories as needed and replacing existing files.
// Writes run concurrently on a bounded pool; all errors are returned joined.
func OutputTo(files []File, dest string) error {
	pool := pond.New(8, len(files)+1)
	defer pool.StopAndWait()

	var (
		mu   sync.Mutex
		errs error
	)
	group := pool.Group()
	for _, f := range files {
		f := f
		group.Submit(func() {
			if err := writeFile(f, dest); err != nil {
				mu.Lock()
				errs = errors.Join(errs, fmt.Errorf("could not write %s: %w", f.Path(), err))
				mu.Unlock()
			}
		})
	}
	group.Wait()
	return errs
}

func writeFile(f File, dest string) error {
	path := filepath.Join(dest, f.Path())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer closenicely.OrDebug(file)
	_, err = f.WriteTo(file)
	return err
}

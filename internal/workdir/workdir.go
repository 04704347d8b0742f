// Package workdir prepares the directories the job writes into.
package workdir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ytget/ytmp3/errs"
)

// DefaultDirPermissions is used for directories created on demand.
const DefaultDirPermissions = 0o755

// Ensure creates dir if it does not exist and verifies that files can be
// created in it. Failures are returned as *errs.FilesystemError.
func Ensure(dir string) error {
	if dir == "" {
		dir = "."
	}
	fi, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return &errs.FilesystemError{Op: "create directory", Path: dir, Err: err}
		}
	case err != nil:
		return &errs.FilesystemError{Op: "stat", Path: dir, Err: err}
	case !fi.IsDir():
		return &errs.FilesystemError{Op: "use directory", Path: dir, Err: errors.New("not a directory")}
	}

	probe, err := os.CreateTemp(dir, ".ytmp3-probe-*")
	if err != nil {
		return &errs.FilesystemError{Op: "write to", Path: dir, Err: err}
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return &errs.FilesystemError{Op: "remove", Path: name, Err: err}
	}
	return nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return &errs.FilesystemError{Op: "create directory", Path: dir, Err: err}
	}
	return nil
}

// Stat returns the size of an existing regular file. ok is false when path
// does not exist.
func Stat(path string) (size int64, ok bool, err error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &errs.FilesystemError{Op: "stat", Path: path, Err: err}
	}
	if fi.IsDir() {
		return 0, false, &errs.FilesystemError{Op: "use file", Path: path, Err: errors.New("is a directory")}
	}
	return fi.Size(), true, nil
}

// Scratch creates a private temporary directory for a session. The returned
// cleanup removes it with everything inside.
func Scratch(prefix string) (string, func() error, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", nil, &errs.FilesystemError{Op: "create temp directory", Path: os.TempDir(), Err: err}
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultFilePerm os.FileMode = 0644

type Closer func() error

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

func OpenFile(path string) (*os.File, Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nullCloser, errors.Wrapf(err, "could not open file %s", path)
	}

	return f, f.Close, nil
}

// OpenForAppend opens path for appending, creating it when missing.
func OpenForAppend(path string, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open file %s for append", path)
	}

	return f, nil
}

// CreateFile creates or truncates path.
func CreateFile(path string, perm os.FileMode) (*os.File, Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, nullCloser, errors.Wrapf(err, "could not create file %s", path)
	}

	return f, f.Close, nil
}

func FileSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "could not stat file %s", f.Name())
	}

	return info.Size(), nil
}

// Replace atomically moves src over dst and then syncs the parent directory.
// Once the rename succeeds dst holds the new content, so a failed directory
// sync is not reported.
func Replace(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "could not replace %s with %s", dst, src)
	}

	_ = SyncDir(filepath.Dir(dst))
	return nil
}

func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "could not open directory %s", dir)
	}
	defer d.Close()

	// some filesystems do not support fsync on directories
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return errors.Wrapf(err, "could not sync directory %s", dir)
	}

	return nil
}

func nullCloser() error { return nil }

package triage

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = ".cull.lock"

// FolderLock keeps two cull sessions from triaging the same folder.
type FolderLock struct {
	path string
	lock *flock.Flock
}

// AcquireFolderLock takes the folder's lock file without waiting.
func AcquireFolderLock(dir string) (*FolderLock, error) {
	path := filepath.Join(dir, lockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrFolderLocked)
	}
	return &FolderLock{path: path, lock: lock}, nil
}

func (l *FolderLock) Path() string { return l.path }

func (l *FolderLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

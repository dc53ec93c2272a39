package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another run holds the base name.
var ErrLocked = errors.New("base name is in use by another run")

// acquireAttempts bounds retries when the lock file is replaced underneath us.
const acquireAttempts = 3

// RunLock is an advisory lock on dir/.base.lock. The file outlives the run;
// stale ones are swept by CleanStale.
type RunLock struct {
	path string
	lock *flock.Flock
}

// LockPath names the advisory lock file for a base name.
func LockPath(dir, base string) string {
	return filepath.Join(dir, "."+base+".lock")
}

// Acquire takes the base-name lock without blocking. A lock taken on an inode
// that was unlinked or replaced after open is dropped and retried, so two runs
// never hold locks on different files for the same path.
func Acquire(dir, base string) (*RunLock, error) {
	path := LockPath(dir, base)
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		current, err := samePath(lock, path)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("verify lock %s: %w", path, err)
		}
		if current {
			return &RunLock{path: path, lock: lock}, nil
		}
		_ = lock.Unlock()
	}
	return nil, fmt.Errorf("%w: %s keeps changing", ErrLocked, path)
}

// samePath reports whether the locked handle still refers to the file at path.
func samePath(lock *flock.Flock, path string) (bool, error) {
	held, err := lock.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return os.SameFile(held, onDisk), nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks the base name and leaves the file in place. Removing it here
// would let a concurrent opener lock an orphaned inode. Calling Release more
// than once is safe.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	lock := l.lock
	l.lock = nil
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

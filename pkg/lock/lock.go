// Package lock ensures only one dirmirror process mirrors into a replica at
// a time.
package lock

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// suffix is appended to the replica root to get the lock path. The lock file
// lives beside the replica rather than inside it, where a pass would delete
// it as an extraneous file.
const suffix = ".dirmirror.lock"

// Lock is an exclusive, advisory lock on a replica root.
type Lock struct {
	flock *flock.Flock
}

// PathFor returns the path of the lock file for the given replica root.
func PathFor(replica string) string {
	return filepath.Clean(replica) + suffix
}

// Acquire takes the lock for `replica` without blocking. If another process
// holds it, Acquire returns a FriendlyError.
func Acquire(replica string) (*Lock, error) {
	path := PathFor(replica)
	fileLock := flock.New(path)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, errors.WithContext(err, "lock "+path)
	}

	if !locked {
		return nil, errors.NewFriendlyError(
			"Another dirmirror process is already mirroring into %q.\n"+
				"If that's not the case, remove the lock file at %q.",
			replica, path)
	}
	return &Lock{flock: fileLock}, nil
}

// Path returns the path of the lock file.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release unlocks the lock. The lock file is left on disk, since removing it
// would race with other processes acquiring it.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return errors.WithContext(err, "unlock "+l.flock.Path())
	}
	return nil
}

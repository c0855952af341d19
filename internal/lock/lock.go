// Package lock guards the clip and dataset directories against concurrent
// pipeline runs using advisory file locks.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside a guarded directory. The leading
// dot keeps it out of group discovery.
const FileName = ".liepavoice.lock"

// ErrBusy indicates another process holds a conflicting lock.
var ErrBusy = errors.New("directory is in use by another liepavoice process")

// Mode selects the kind of lock taken.
type Mode int

const (
	// Shared allows other readers; used while a directory is read.
	Shared Mode = iota
	// Exclusive excludes every other holder; used while a directory is written.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Lock is a held directory lock.
type Lock struct {
	path string
	mode Mode
	fl   *flock.Flock
}

// Acquire takes a lock on dir without blocking, creating dir if needed.
func Acquire(dir string, mode Mode) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return acquire(filepath.Join(dir, FileName), dir, mode)
}

// AcquireBeside locks dir through a lock file in its parent directory. Use it
// for directories that are removed and replaced while the lock is held.
func AcquireBeside(dir string, mode Mode) (*Lock, error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", parent, err)
	}
	return acquire(filepath.Join(parent, "."+filepath.Base(dir)+".lock"), dir, mode)
}

func acquire(path, dir string, mode Mode) (*Lock, error) {
	fl := flock.New(path)

	var (
		ok  bool
		err error
	)
	if mode == Exclusive {
		ok, err = fl.TryLock()
	} else {
		ok, err = fl.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock on %s: %w", mode, dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return &Lock{path: path, mode: mode, fl: fl}, nil
}

// Path reports the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. It is safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

package filesink

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// lockFileName is created inside every configured directory to hold the
// advisory lock. It never matches the dated log file pattern, so retention
// and rotation ignore it.
const lockFileName = ".sink.lock"

// dirLock extends the one-descriptor invariant across processes: while a sink
// holds the lock, no other sink, in this process or another, can set up the
// same directory.
type dirLock struct {
	fl *flock.Flock
}

// acquireDirLock takes the advisory lock for dir without blocking. A held
// lock means another live sink owns the directory.
func acquireDirLock(dir string) (*dirLock, error) {
	fl := flock.New(filepath.Join(dir, lockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", fl.Path())
	}
	if !ok {
		return nil, errors.Errorf("%s is held by another sink", fl.Path())
	}
	return &dirLock{fl: fl}, nil
}

// release drops the lock. Safe on a nil receiver.
func (l *dirLock) release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

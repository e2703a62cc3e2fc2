package filesink

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// sinkCore is the exclusivity domain: one mutex serializes setup, append,
// flush and shutdown against the shared buffer and descriptor. No method may
// be called without holding mu, public entry points live on Sink.
type sinkCore struct {
	mu sync.Mutex

	directory string
	rot       *rotator
	lock      *dirLock

	buf       []byte
	highWater int
	closed    bool
}

func newSinkCore(rot *rotator, highWater int) *sinkCore {
	return &sinkCore{
		rot:       rot,
		buf:       make([]byte, 0, highWater),
		highWater: highWater,
	}
}

// setupDirectory normalizes path, creates it with any missing parents, takes
// the directory lock and opens today's file. Repeated calls with the same
// normalized path do not reopen the file, a different path moves the sink to
// the new location before the old one is released.
func (s *sinkCore) setupDirectory(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return WithDirectory(path, err)
	}

	if dir == s.directory && s.rot.file != nil {
		// Same destination, only the date may have moved on.
		return s.rot.ensureOpen(dir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return WithDirectory(dir, err)
	}
	lock, err := acquireDirLock(dir)
	if err != nil {
		return WithDirectory(dir, err)
	}
	if err := s.rot.ensureOpen(dir); err != nil {
		lock.release()
		return err
	}

	s.lock.release()
	s.lock = lock
	s.directory = dir
	return nil
}

// append buffers p and flushes synchronously once the buffered byte count
// reaches the high-water mark. The caller sees the flush error, the bytes
// stay buffered for a later retry.
func (s *sinkCore) append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.buf = append(s.buf, p...)
	if len(s.buf) >= s.highWater {
		return s.flushLocked()
	}
	return nil
}

// flush writes the buffered bytes, if any, to the current day's file.
func (s *sinkCore) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	return s.flushLocked()
}

// flushLocked rotates to the current date if needed and writes the entire
// buffer as one write. The buffer is cleared only after the write succeeds;
// on a partial write the unwritten tail is kept for the next attempt.
func (s *sinkCore) flushLocked() error {
	if len(s.buf) == 0 {
		return nil
	}
	if s.directory == "" {
		// Nothing to write into yet, keep buffering until setup.
		return nil
	}

	if err := s.rot.ensureOpen(s.directory); err != nil {
		return err
	}

	n, err := s.rot.file.Write(s.buf)
	if err != nil {
		if n > 0 {
			s.buf = s.buf[:copy(s.buf, s.buf[n:])]
		}
		return &WriteError{Path: s.rot.path, Err: err}
	}

	s.buf = s.buf[:0]
	return nil
}

// shutdown drains the buffer with one final write, closes the descriptor and
// releases the directory lock. Further calls are no-ops, further operations
// fail with ErrSinkClosed.
func (s *sinkCore) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var flushErr error
	if len(s.buf) > 0 && s.directory == "" {
		// The drop must not be silent: the caller never configured a
		// destination for these bytes.
		flushErr = &WriteError{Err: errors.Errorf("dropping %d buffered bytes, no directory was configured", len(s.buf))}
	} else {
		flushErr = s.flushLocked()
	}

	if s.rot.file != nil {
		s.rot.file.Sync()
	}
	closeErr := s.rot.close()
	s.lock.release()
	s.lock = nil

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return &WriteError{Path: s.directory, Err: closeErr}
	}
	return nil
}

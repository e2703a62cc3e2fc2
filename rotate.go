package filesink

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

const dateLayout = "2006-01-02"

// logFile is the surface of *os.File the rotator depends on. Tests substitute
// failing implementations to exercise the write-failure paths.
type logFile interface {
	io.Writer
	io.Closer
	Sync() error
	Seek(offset int64, whence int) (int64, error)
	Name() string
}

// rotator owns the single open descriptor of a sink and swaps it for a newly
// named file when the calendar day changes. The previous descriptor is always
// closed before a new one is opened.
type rotator struct {
	extension string
	fileMode  os.FileMode

	now  func() time.Time
	open func(path string) (logFile, error)

	file logFile
	path string
}

func newRotator(extension string, mode os.FileMode) *rotator {
	r := &rotator{
		extension: extension,
		fileMode:  mode,
		now:       time.Now,
	}
	r.open = func(path string) (logFile, error) {
		return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, r.fileMode)
	}
	return r
}

// currentName returns the date-derived file name for the current local day.
func (r *rotator) currentName() string {
	return r.now().Format(dateLayout) + "." + r.extension
}

// ensureOpen makes the open descriptor match today's file inside dir, rotating
// if the date or the directory changed since the last call. Close errors on
// the outgoing descriptor are ignored, the new file is positioned at
// end-of-file so appends land after existing content across process restarts.
func (r *rotator) ensureOpen(dir string) error {
	target := filepath.Join(dir, r.currentName())
	if r.file != nil && r.path == target {
		return nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
		r.path = ""
	}

	f, err := r.open(target)
	if err != nil {
		return &OpenError{Path: target, Err: err}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return &OpenError{Path: target, Err: err}
	}

	r.file = f
	r.path = target
	return nil
}

// close releases the descriptor if one is open.
func (r *rotator) close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.path = ""
	return err
}

package filesink

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSinkClosed is returned by any sink operation attempted after Shutdown
// has completed. The sink never reopens transparently.
var ErrSinkClosed = errors.New("filesink: sink is closed")

// DirectoryError reports that the log directory could not be created or
// exclusively acquired.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("filesink: directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// WithDirectory wraps err with a DirectoryError for path.
func WithDirectory(path string, err error) error {
	return &DirectoryError{Path: path, Err: err}
}

// OpenError reports that the dated log file could not be opened or positioned.
// Callers should treat it as fatal at startup: running without a log file
// loses output silently.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("filesink: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// WriteError reports a failed flush to the open log file. The buffered bytes
// are retained for the next flush attempt.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("filesink: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

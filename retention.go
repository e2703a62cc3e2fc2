package filesink

import (
	"os"
	"path/filepath"
	"time"
)

// removeExpired deletes dated log files older than the retention window. Only
// files whose name parses as yyyy-MM-dd with the sink's extension are
// considered, and the currently open file is never removed. Errors on
// individual entries are skipped, a directory that cannot be read ends the
// pass silently.
func (s *sinkCore) removeExpired(retentionDays int64) {
	if retentionDays <= 0 {
		return
	}

	s.mu.Lock()
	dir := s.directory
	current := s.rot.path
	ext := "." + s.rot.extension
	cutoff := s.rot.now().AddDate(0, 0, -int(retentionDays))
	s.mu.Unlock()

	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, name[:len(name)-len(ext)], cutoff.Location())
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		if path == current || !day.Before(cutoff) {
			continue
		}
		os.Remove(path)
	}
}

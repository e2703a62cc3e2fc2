package filesink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// quietConfig keeps the background flush out of the way so tests drive every
// flush explicitly.
func quietConfig(dir string) *Config {
	return &Config{Directory: dir, FlushIntervalMS: 60_000}
}

func todayFile(t *testing.T, dir string) string {
	t.Helper()
	return filepath.Join(dir, time.Now().Format(dateLayout)+".log")
}

func TestOrderedPersistence(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), quietConfig(dir))
	require.NoError(t, err)

	require.NoError(t, s.Append([]byte("A\n")))
	require.NoError(t, s.Append([]byte("B\n")))
	require.NoError(t, s.Append([]byte("C\n")))
	require.NoError(t, s.Shutdown())

	content, err := os.ReadFile(todayFile(t, dir))
	require.NoError(t, err)
	require.Equal(t, "A\nB\nC\n", string(content))
}

func TestThresholdTriggeredFlush(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), quietConfig(dir))
	require.NoError(t, err)

	chunk := bytes.Repeat([]byte{'x'}, 64*1024)
	require.NoError(t, s.Append(chunk))

	// The write happened synchronously inside Append.
	info, err := os.Stat(todayFile(t, dir))
	require.NoError(t, err)
	require.EqualValues(t, len(chunk), info.Size())

	require.NoError(t, s.Shutdown())

	info, err = os.Stat(todayFile(t, dir))
	require.NoError(t, err)
	require.EqualValues(t, len(chunk), info.Size(), "shutdown must not re-append flushed bytes")
}

func TestShutdownWithEmptyBufferWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), quietConfig(dir))
	require.NoError(t, err)

	require.NoError(t, s.Shutdown())

	info, err := os.Stat(todayFile(t, dir))
	require.NoError(t, err)
	require.Zero(t, info.Size())

	// Shutdown is idempotent, later operations are rejected.
	require.NoError(t, s.Shutdown())
	require.ErrorIs(t, s.Append([]byte("late\n")), ErrSinkClosed)
	require.ErrorIs(t, s.Flush(), ErrSinkClosed)
	require.ErrorIs(t, s.SetupDirectory(dir), ErrSinkClosed)
}

func TestSetupDirectoryNormalizesPath(t *testing.T) {
	base := t.TempDir()
	s, err := New(context.Background())
	require.NoError(t, err)
	defer s.Shutdown()

	require.NoError(t, s.SetupDirectory(base+"/x///y///z/"))

	want := filepath.Join(base, "x", "y", "z")
	require.Equal(t, want, s.core.directory)
	require.DirExists(t, want)
}

func TestSetupDirectoryIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), quietConfig(dir))
	require.NoError(t, err)
	defer s.Shutdown()

	opened := s.core.rot.file
	require.NotNil(t, opened)

	require.NoError(t, s.SetupDirectory(dir))
	require.NoError(t, s.SetupDirectory(dir+"//"))
	require.Same(t, opened, s.core.rot.file)
}

func TestSetupDirectoryMoveReopens(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	s, err := New(context.Background(), quietConfig(first))
	require.NoError(t, err)

	require.NoError(t, s.Append([]byte("one\n")))
	require.NoError(t, s.Flush())

	require.NoError(t, s.SetupDirectory(second))
	require.NoError(t, s.Append([]byte("two\n")))
	require.NoError(t, s.Shutdown())

	content, err := os.ReadFile(todayFile(t, first))
	require.NoError(t, err)
	require.Equal(t, "one\n", string(content))

	content, err = os.ReadFile(todayFile(t, second))
	require.NoError(t, err)
	require.Equal(t, "two\n", string(content))
}

func TestSetupDirectoryFailsOnUncreatablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o640))

	s, err := New(context.Background())
	require.NoError(t, err)
	defer s.Shutdown()

	err = s.SetupDirectory(filepath.Join(blocker, "logs"))
	require.Error(t, err)

	var dirErr *DirectoryError
	require.ErrorAs(t, err, &dirErr)
}

func TestRotationAcrossDateChange(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), &Config{FlushIntervalMS: 60_000})
	require.NoError(t, err)

	day := time.Date(2026, 8, 31, 23, 0, 0, 0, time.Local)
	s.core.rot.now = func() time.Time { return day }

	require.NoError(t, s.SetupDirectory(dir))
	require.NoError(t, s.Append([]byte("old day\n")))
	require.NoError(t, s.Flush())

	day = day.Add(2 * time.Hour)
	require.NoError(t, s.Append([]byte("new day\n")))
	require.NoError(t, s.Shutdown())

	old, err := os.ReadFile(filepath.Join(dir, "2026-08-31.log"))
	require.NoError(t, err)
	require.Equal(t, "old day\n", string(old))

	next, err := os.ReadFile(filepath.Join(dir, "2026-09-01.log"))
	require.NoError(t, err)
	require.Equal(t, "new day\n", string(next))
}

var errDiskRejected = errors.New("simulated write failure")

// flakyFile fails writes while its switch is on, passing everything else
// through to the real descriptor.
type flakyFile struct {
	logFile
	fail *atomic.Bool
}

func (f *flakyFile) Write(p []byte) (int, error) {
	if f.fail.Load() {
		return 0, errDiskRejected
	}
	return f.logFile.Write(p)
}

// withFlakyWrites reroutes the sink's file opens through flakyFile.
func withFlakyWrites(s *Sink) *atomic.Bool {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	var fail atomic.Bool
	open := s.core.rot.open
	s.core.rot.open = func(path string) (logFile, error) {
		f, err := open(path)
		if err != nil {
			return nil, err
		}
		return &flakyFile{logFile: f, fail: &fail}, nil
	}
	return &fail
}

func TestFailedFlushRetainsBuffer(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), &Config{FlushIntervalMS: 60_000})
	require.NoError(t, err)

	fail := withFlakyWrites(s)
	require.NoError(t, s.SetupDirectory(dir))

	require.NoError(t, s.Append([]byte("precious\n")))

	fail.Store(true)
	err = s.Flush()
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, []byte("precious\n"), s.core.buf, "unwritten bytes must survive the failure")

	info, err := os.Stat(todayFile(t, dir))
	require.NoError(t, err)
	require.Zero(t, info.Size())

	fail.Store(false)
	require.NoError(t, s.Flush())
	require.Empty(t, s.core.buf)
	require.NoError(t, s.Shutdown())

	content, err := os.ReadFile(todayFile(t, dir))
	require.NoError(t, err)
	require.Equal(t, "precious\n", string(content), "retried bytes are written exactly once")
}

func TestConcurrentAppendsPersistEveryLine(t *testing.T) {
	dir := t.TempDir()
	// A short interval keeps background flushes interleaving with the
	// producers, and the volume crosses the high-water mark several times.
	s, err := New(context.Background(), &Config{Directory: dir, FlushIntervalMS: 10})
	require.NoError(t, err)

	const workers = 8
	const linesPerWorker = 400
	pad := strings.Repeat("x", 48)

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < linesPerWorker; i++ {
				line := fmt.Sprintf("worker%02d-%04d-%s\n", w, i, pad)
				if err := s.Append([]byte(line)); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
	require.NoError(t, s.Shutdown())

	content, err := os.ReadFile(todayFile(t, dir))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	require.Len(t, lines, workers*linesPerWorker)

	seen := make(map[string]int, len(lines))
	for _, line := range lines {
		seen[line]++
	}
	for w := 0; w < workers; w++ {
		for i := 0; i < linesPerWorker; i++ {
			line := fmt.Sprintf("worker%02d-%04d-%s", w, i, pad)
			require.Equal(t, 1, seen[line], "line %q must appear exactly once, intact", line)
		}
	}
}

func TestShutdownDuringConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), &Config{Directory: dir, FlushIntervalMS: 5})
	require.NoError(t, err)

	const workers = 4
	const maxLines = 50_000
	accepted := make([][]string, workers)

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < maxLines; i++ {
				line := fmt.Sprintf("w%d-%06d\n", w, i)
				err := s.Append([]byte(line))
				if errors.Is(err, ErrSinkClosed) {
					return
				}
				if err != nil {
					errCh <- err
					return
				}
				accepted[w] = append(accepted[w], line)
			}
		}(w)
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Shutdown())
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	content, err := os.ReadFile(todayFile(t, dir))
	require.NoError(t, err)

	persisted := make(map[string]int)
	total := 0
	for _, line := range strings.SplitAfter(string(content), "\n") {
		if line == "" {
			continue
		}
		persisted[line]++
		total++
	}

	// Every accepted append is on disk exactly once, rejected appends left
	// no bytes behind.
	expected := 0
	for w := 0; w < workers; w++ {
		expected += len(accepted[w])
		for _, line := range accepted[w] {
			require.Equal(t, 1, persisted[line], "accepted line %q must persist exactly once", line)
		}
	}
	require.Equal(t, expected, total, "file must hold nothing besides the accepted lines")
}

func TestShutdownWithoutDirectoryReportsDroppedBytes(t *testing.T) {
	s, err := New(context.Background(), &Config{FlushIntervalMS: 60_000})
	require.NoError(t, err)

	require.NoError(t, s.Append([]byte("nowhere to go\n")))

	err = s.Shutdown()
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	require.Contains(t, writeErr.Error(), "no directory")
}

func TestDirectoryLockExcludesSecondSink(t *testing.T) {
	dir := t.TempDir()
	first, err := New(context.Background(), quietConfig(dir))
	require.NoError(t, err)

	second, err := New(context.Background(), &Config{FlushIntervalMS: 60_000})
	require.NoError(t, err)
	defer second.Shutdown()

	err = second.SetupDirectory(dir)
	var dirErr *DirectoryError
	require.ErrorAs(t, err, &dirErr)

	require.NoError(t, first.Shutdown())
	require.NoError(t, second.SetupDirectory(dir))
}

func TestPeriodicFlushReachesDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), &Config{Directory: dir, FlushIntervalMS: 10})
	require.NoError(t, err)
	defer s.Shutdown()

	require.NoError(t, s.Append([]byte("ticked\n")))

	require.Eventually(t, func() bool {
		info, err := os.Stat(todayFile(t, dir))
		return err == nil && info.Size() == int64(len("ticked\n"))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBackgroundFlushFailuresAreSurfaced(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), &Config{FlushIntervalMS: 10})
	require.NoError(t, err)

	fail := withFlakyWrites(s)
	require.NoError(t, s.SetupDirectory(dir))

	seen := make(chan error, 1)
	s.OnError(func(err error) {
		select {
		case seen <- err:
		default:
		}
	})

	fail.Store(true)
	require.NoError(t, s.Append([]byte("doomed for now\n")))

	select {
	case err := <-seen:
		require.ErrorIs(t, err, errDiskRejected)
	case <-time.After(2 * time.Second):
		t.Fatal("background flush failure was never reported")
	}
	require.NotZero(t, s.FlushFailures())

	// The loop keeps running and delivers the bytes once writes recover.
	fail.Store(false)
	require.Eventually(t, func() bool {
		info, err := os.Stat(todayFile(t, dir))
		return err == nil && info.Size() > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Shutdown())
}

package filesink

import (
	"context"
	"os"
	"sync/atomic"
	"time"
)

// Sink is a buffered, daily-rotating append sink for pre-encoded log lines.
// Lines accumulate in memory and reach disk when the buffer crosses the
// high-water mark, on the periodic flush, or at shutdown. Each sink owns
// exactly one open descriptor, writing to <directory>/yyyy-MM-dd.<ext>.
//
// All methods are safe for concurrent use, one sink must not be shared across
// distinct log destinations.
type Sink struct {
	core  *sinkCore
	sched *scheduler

	flushFailures atomic.Uint64
	errHandler    atomic.Value // stores func(error)
}

// New constructs a sink and starts its background flush loop. ctx bounds the
// loop's lifetime in addition to Shutdown. When cfg carries a directory the
// sink is set up immediately and a failure is returned to the caller, which
// decides whether to abort.
func New(ctx context.Context, cfg ...*Config) (*Sink, error) {
	var userCfg *Config
	if len(cfg) > 0 {
		userCfg = cfg[0]
	}
	merged := mergeConfig(userCfg)

	rot := newRotator(merged.Extension, os.FileMode(merged.FileMode))
	core := newSinkCore(rot, int(merged.HighWaterMark))

	s := &Sink{core: core}
	s.sched = &scheduler{
		interval: time.Duration(merged.FlushIntervalMS) * time.Millisecond,
		flush:    core.flush,
		report:   s.reportFlushError,
	}
	if merged.RetentionDays > 0 {
		days := merged.RetentionDays
		s.sched.retention = func() { core.removeExpired(days) }
	}

	if merged.Directory != "" {
		if err := core.setupDirectory(merged.Directory); err != nil {
			return nil, err
		}
	}

	s.sched.start(ctx)
	return s, nil
}

// SetupDirectory points the sink at a directory, creating it with any missing
// parents. The path is normalized to an absolute form with single separators
// and no trailing separator. Calling it again with the same path is a no-op,
// a different path moves the sink.
func (s *Sink) SetupDirectory(path string) error {
	return s.core.setupDirectory(path)
}

// Append buffers one pre-encoded line. The caller supplies any terminator,
// the sink adds no framing. Crossing the high-water mark flushes the entire
// buffer synchronously before Append returns.
func (s *Sink) Append(line []byte) error {
	return s.core.append(line)
}

// Flush writes all buffered bytes to the current day's file. Empty buffers
// are a no-op. A failed write keeps the bytes buffered for the next attempt.
func (s *Sink) Flush() error {
	return s.core.flush()
}

// Shutdown stops the flush loop, drains the buffer with one final write and
// closes the file. It waits for any in-flight flush, no tick fires after it
// returns. Repeated calls return nil, any other operation afterwards fails
// with ErrSinkClosed.
func (s *Sink) Shutdown() error {
	s.sched.stop()
	return s.core.shutdown()
}

// OnError installs a handler invoked with every flush failure from the
// background loop. Optional, failures are always counted regardless.
func (s *Sink) OnError(fn func(error)) {
	if fn != nil {
		s.errHandler.Store(fn)
	}
}

// FlushFailures reports how many background flushes have failed since the
// sink was created.
func (s *Sink) FlushFailures() uint64 {
	return s.flushFailures.Load()
}

func (s *Sink) reportFlushError(err error) {
	s.flushFailures.Add(1)
	if fn, ok := s.errHandler.Load().(func(error)); ok {
		fn(err)
	}
}

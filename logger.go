package filesink

import (
	"context"
	"strconv"
	"time"
)

// Log level constants match slog levels for consistency with applications that use it.
const (
	LevelDebug int64 = -4 // matches slog.LevelDebug
	LevelInfo  int64 = 0  // matches slog.LevelInfo
	LevelWarn  int64 = 4  // matches slog.LevelWarn
	LevelError int64 = 8  // matches slog.LevelError
)

// Metadata is the set of key-value pairs attached to a log record.
type Metadata map[string]string

// merged returns base overlaid with each extra map in order, later sources
// winning on key collisions. The inputs are never mutated.
func (base Metadata) merged(extra ...Metadata) Metadata {
	out := make(Metadata, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, m := range extra {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Logger is the formatting front-end of a Sink. It encodes leveled records as
// text or NDJSON lines and hands the finished bytes to the sink, nothing
// else. Metadata precedence, lowest to highest: logger base, context scope,
// call site.
type Logger struct {
	sink   *Sink
	level  int64
	format string
	meta   Metadata

	now func() time.Time
}

// NewLogger builds a logger over sink. Level and format come from cfg, which
// may be nil for the defaults.
func NewLogger(sink *Sink, cfg *Config) *Logger {
	merged := mergeConfig(cfg)
	return &Logger{
		sink:   sink,
		level:  merged.Level,
		format: merged.Format,
		meta:   Metadata{},
		now:    time.Now,
	}
}

// With returns a derived logger whose base metadata includes meta. The
// receiver is unchanged.
func (l *Logger) With(meta Metadata) *Logger {
	clone := *l
	clone.meta = l.meta.merged(meta)
	return &clone
}

// Debug logs a message at debug level. Call-site metadata overrides
// context-scoped and base metadata.
func (l *Logger) Debug(ctx context.Context, msg string, meta ...Metadata) error {
	return l.log(ctx, LevelDebug, msg, meta...)
}

// Info logs a message at info level.
func (l *Logger) Info(ctx context.Context, msg string, meta ...Metadata) error {
	return l.log(ctx, LevelInfo, msg, meta...)
}

// Warn logs a message at warning level.
func (l *Logger) Warn(ctx context.Context, msg string, meta ...Metadata) error {
	return l.log(ctx, LevelWarn, msg, meta...)
}

// Error logs a message at error level.
func (l *Logger) Error(ctx context.Context, msg string, meta ...Metadata) error {
	return l.log(ctx, LevelError, msg, meta...)
}

// Measure runs fn, logs msg with the elapsed wall time in a duration_ms
// field, and returns fn's error. Failures log at error level with the error
// string attached, successes at info level.
func (l *Logger) Measure(ctx context.Context, msg string, fn func() error) error {
	start := l.now()
	err := fn()
	elapsed := l.now().Sub(start)

	meta := Metadata{
		"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
	}
	if err != nil {
		meta["error"] = err.Error()
		l.log(ctx, LevelError, msg, meta)
		return err
	}
	l.log(ctx, LevelInfo, msg, meta)
	return nil
}

func (l *Logger) log(ctx context.Context, level int64, msg string, meta ...Metadata) error {
	if level < l.level {
		return nil
	}

	record := l.meta.merged(MetaFrom(ctx)).merged(meta...)
	s := newSerializer(l.format)
	line := s.serialize(l.now(), level, msg, record)
	return l.sink.Append(line)
}

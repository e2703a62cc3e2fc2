package filesink

import (
	"sort"
	"time"
)

// Line encoding names accepted in Config.Format.
const (
	FormatText   = "text"
	FormatNDJSON = "ndjson"
)

// serializer renders one log record as a complete line, newline included.
// A fresh serializer is created per record, the buffer is not shared.
type serializer struct {
	buf    []byte
	format string
}

func newSerializer(format string) *serializer {
	return &serializer{
		buf:    make([]byte, 0, 256),
		format: format,
	}
}

// serialize encodes a record in the configured format. Metadata keys are
// emitted in sorted order so output is deterministic.
func (s *serializer) serialize(ts time.Time, level int64, msg string, meta Metadata) []byte {
	if s.format == FormatNDJSON {
		return s.serializeNDJSON(ts, level, msg, meta)
	}
	return s.serializeText(ts, level, msg, meta)
}

// serializeText formats the record as plain text: timestamp, level, message
// and space-separated key=value pairs.
func (s *serializer) serializeText(ts time.Time, level int64, msg string, meta Metadata) []byte {
	s.buf = append(s.buf, ts.Format(time.RFC3339Nano)...)
	s.buf = append(s.buf, ' ')
	s.buf = append(s.buf, levelToString(level)...)
	s.buf = append(s.buf, ' ')
	s.writeTextValue(msg)

	for _, k := range sortedKeys(meta) {
		s.buf = append(s.buf, ' ')
		s.buf = append(s.buf, k...)
		s.buf = append(s.buf, '=')
		s.writeTextValue(meta[k])
	}

	s.buf = append(s.buf, '\n')
	return s.buf
}

// serializeNDJSON formats the record as one JSON object per line with time,
// level and message first, then the flattened metadata.
func (s *serializer) serializeNDJSON(ts time.Time, level int64, msg string, meta Metadata) []byte {
	s.buf = append(s.buf, `{"time":"`...)
	s.buf = append(s.buf, ts.Format(time.RFC3339Nano)...)
	s.buf = append(s.buf, `","level":"`...)
	s.buf = append(s.buf, levelToString(level)...)
	s.buf = append(s.buf, `","message":"`...)
	s.writeString(msg)
	s.buf = append(s.buf, '"')

	for _, k := range sortedKeys(meta) {
		s.buf = append(s.buf, ',', '"')
		s.writeString(k)
		s.buf = append(s.buf, '"', ':', '"')
		s.writeString(meta[k])
		s.buf = append(s.buf, '"')
	}

	s.buf = append(s.buf, '}', '\n')
	return s.buf
}

// writeTextValue appends a string, quoting it when it contains spaces,
// quotes or control characters.
func (s *serializer) writeTextValue(v string) {
	if needsQuotes(v) {
		s.buf = append(s.buf, '"')
		s.writeString(v)
		s.buf = append(s.buf, '"')
		return
	}
	s.buf = append(s.buf, v...)
}

// writeString appends str with escape sequences for quotes, backslashes and
// control characters.
func (s *serializer) writeString(str string) {
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == '"':
			s.buf = append(s.buf, '\\', '"')
		case c == '\\':
			s.buf = append(s.buf, '\\', '\\')
		case c == '\n':
			s.buf = append(s.buf, '\\', 'n')
		case c == '\r':
			s.buf = append(s.buf, '\\', 'r')
		case c == '\t':
			s.buf = append(s.buf, '\\', 't')
		case c < 0x20:
			s.buf = append(s.buf, '\\', 'u', '0', '0', hexDigit(c>>4), hexDigit(c&0xf))
		default:
			s.buf = append(s.buf, c)
		}
	}
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + n - 10
}

// needsQuotes checks if a string needs to be quoted in text format.
func needsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, c := range s {
		if c <= ' ' || c == '"' || c == '\\' || c == '=' {
			return true
		}
	}
	return false
}

func sortedKeys(meta Metadata) []string {
	if len(meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// levelToString converts the numeric levels to the string written in the file.
func levelToString(level int64) string {
	switch {
	case level < LevelInfo:
		return "DEBUG"
	case level < LevelWarn:
		return "INFO"
	case level < LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

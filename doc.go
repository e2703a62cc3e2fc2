// Package filesink provides a single-writer, buffered disk sink that rotates
// to a new append-only file each calendar day, plus a small leveled logging
// front-end that feeds it encoded lines.
//
// Features:
//   - In-memory byte buffering with a 64 KiB high-water mark
//   - Periodic background flush on a fixed interval
//   - Date-based rotation to <directory>/yyyy-MM-dd.<ext>
//   - Exactly one open descriptor per sink, flock-guarded per directory
//   - Failed flushes retain the buffer for retry
//   - Optional retention of dated files for a configured number of days
//   - Text and NDJSON line encoding with context-scoped metadata
//   - Deterministic shutdown draining the buffer and joining the flush loop
package filesink

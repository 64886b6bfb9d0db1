// Package memory provides a logging backend that keeps entries in memory.
// The pipeline attaches one per run to count data-quality events, and tests
// use it to assert that a warning was emitted.
package memory

import (
	"fmt"
	"sync"

	"github.com/comicverse/unigraph/pkg/logger"
)

type Level string

const (
	LevelLog   Level = "log"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Entry is a single recorded log call. Fields holds the key/value pairs;
// a trailing key without value is stored with a nil value.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// String returns the field under key formatted with %v, or "" if absent.
func (e Entry) String(key string) string {
	v, ok := e.Fields[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// MemoryLogger records every entry it receives. It is safe for concurrent use.
// Fatal is recorded like any other level and does not exit.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
	levels  map[Level]bool
}

// NewMemoryLogger records the given levels, or every level if none are given.
func NewMemoryLogger(levels ...Level) *MemoryLogger {
	m := &MemoryLogger{}
	if len(levels) > 0 {
		m.levels = make(map[Level]bool, len(levels))
		for _, l := range levels {
			m.levels[l] = true
		}
	}
	return m
}

func (m *MemoryLogger) record(level Level, message string, keyvals []any) {
	if m.levels != nil && !m.levels[level] {
		return
	}
	fields := make(map[string]any, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprintf("%v", keyvals[i])
		if i+1 < len(keyvals) {
			fields[key] = keyvals[i+1]
		} else {
			fields[key] = nil
		}
	}
	m.mu.Lock()
	m.entries = append(m.entries, Entry{Level: level, Message: message, Fields: fields})
	m.mu.Unlock()
}

func (m *MemoryLogger) Log(message string, keyvals ...any)   { m.record(LevelLog, message, keyvals) }
func (m *MemoryLogger) Debug(message string, keyvals ...any) { m.record(LevelDebug, message, keyvals) }
func (m *MemoryLogger) Info(message string, keyvals ...any)  { m.record(LevelInfo, message, keyvals) }
func (m *MemoryLogger) Warn(message string, keyvals ...any)  { m.record(LevelWarn, message, keyvals) }
func (m *MemoryLogger) Error(message string, keyvals ...any) { m.record(LevelError, message, keyvals) }
func (m *MemoryLogger) Fatal(message string, keyvals ...any) { m.record(LevelFatal, message, keyvals) }

// Entries returns a copy of everything recorded so far.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// DataQualityEvents returns the entries emitted through logger.DataQuality.
func (m *MemoryLogger) DataQualityEvents() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range m.entries {
		if e.Level == LevelWarn && e.Message == logger.DataQualityMessage {
			out = append(out, e)
		}
	}
	return out
}

// DataQualityCounts counts data-quality events by kind.
func (m *MemoryLogger) DataQualityCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range m.DataQualityEvents() {
		counts[e.String("kind")]++
	}
	return counts
}

// Reset drops all recorded entries.
func (m *MemoryLogger) Reset() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

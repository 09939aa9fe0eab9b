package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type (
	recordingLogger struct {
		mu    sync.Mutex
		lines []logLine
	}

	logLine struct {
		level   string
		msg     string
		keyvals []any
	}

	recordingMetrics struct {
		mu       sync.Mutex
		counters map[string]float64
		timers   map[string]int
	}
)

func (l *recordingLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.record("debug", msg, keyvals)
}

func (l *recordingLogger) Info(_ context.Context, msg string, keyvals ...any) {
	l.record("info", msg, keyvals)
}

func (l *recordingLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.record("warn", msg, keyvals)
}

func (l *recordingLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.record("error", msg, keyvals)
}

func (l *recordingLogger) record(level, msg string, keyvals []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, keyvals: keyvals})
}

func (l *recordingLogger) find(msg string) (logLine, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.msg == msg {
			return line, true
		}
	}
	return logLine{}, false
}

func (l *recordingLogger) hasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.level == level {
			return true
		}
	}
	return false
}

// value returns the logged value for key rendered with fmt.Sprint.
func (l logLine) value(key string) string {
	for i := 0; i+1 < len(l.keyvals); i += 2 {
		if l.keyvals[i] == key {
			return fmt.Sprint(l.keyvals[i+1])
		}
	}
	return ""
}

func (m *recordingMetrics) IncCounter(name string, value float64, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[name] += value
}

func (m *recordingMetrics) RecordTimer(name string, _ time.Duration, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timers == nil {
		m.timers = make(map[string]int)
	}
	m.timers[name]++
}

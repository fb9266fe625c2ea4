package main

import (
	"strings"
	"sync"
)

// Logger keeps the last n lines written to it; slog writes here so the log view can show them.
type Logger struct {
	lines []string
	mx    sync.RWMutex
	n     int
	cb    func()
}

func NewLogger(n int) *Logger {
	return &Logger{
		lines: make([]string, 0, n),
		n:     n,
	}
}

func (l *Logger) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		l.AddLine(line)
	}
	return len(p), nil
}

func (l *Logger) AddLine(s string) {
	l.mx.Lock()
	l.lines = append(l.lines, s)
	if len(l.lines) > l.n {
		l.lines = l.lines[len(l.lines)-l.n:]
	}
	cb := l.cb
	l.mx.Unlock()

	if cb != nil {
		cb()
	}
}

func (l *Logger) SetCallback(cb func()) {
	l.mx.Lock()
	l.cb = cb
	l.mx.Unlock()
}

func (l *Logger) GetLines(n int) []string {
	l.mx.RLock()
	defer l.mx.RUnlock()

	if n < 0 {
		n = 0
	}
	if len(l.lines) <= n {
		return append([]string(nil), l.lines...)
	}
	return append([]string(nil), l.lines[len(l.lines)-n:]...)
}

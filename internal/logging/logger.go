// Package logging is a small leveled logger for the HTTP service and --debug
// output. Messages go to a writer or to one file per day under a logs directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	LevelOff     = 0 // No logging
	LevelBasic   = 1 // Errors, warnings, requests
	LevelVerbose = 2 // Everything, including generated code
)

// ParseLevel maps "off", "basic" and "verbose" to a level. Unknown values are basic.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "0":
		return LevelOff
	case "verbose", "debug", "2":
		return LevelVerbose
	}
	return LevelBasic
}

// Logger writes timestamped, leveled lines. A nil *Logger discards everything.
type Logger struct {
	level   int
	logsDir string
	out     io.Writer
	file    *os.File
	day     string
	mu      sync.Mutex
	now     func() time.Time
}

// New returns a logger writing to w.
func New(level int, w io.Writer) *Logger {
	return &Logger{level: level, out: w, now: time.Now}
}

// NewFileLogger returns a logger writing to logsDir/YYYY-MM-DD.log.
func NewFileLogger(level int, logsDir string) *Logger {
	return &Logger{level: level, logsDir: logsDir, now: time.Now}
}

// Level returns the configured level.
func (l *Logger) Level() int {
	if l == nil {
		return LevelOff
	}
	return l.level
}

// writer returns the destination for the current day, rotating files when the date changes.
func (l *Logger) writer() (io.Writer, error) {
	if l.out != nil {
		return l.out, nil
	}
	today := l.now().Format("2006-01-02")
	if l.file != nil && l.day == today {
		return l.file, nil
	}
	if err := os.MkdirAll(l.logsDir, 0o755); err != nil {
		return nil, err
	}
	if l.file != nil {
		l.file.Close()
	}
	f, err := os.OpenFile(filepath.Join(l.logsDir, today+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.file, l.day = f, today
	return f, nil
}

func (l *Logger) log(level int, prefix string, format string, args ...any) {
	if l == nil || l.level < level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w, err := l.writer()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%s [%s] %s\n", l.now().Format("2006-01-02 15:04:05"), prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any)  { l.log(LevelBasic, "INFO", format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelBasic, "WARN", format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelBasic, "ERROR", format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.log(LevelVerbose, "DEBUG", format, args...) }

// Close closes the current log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

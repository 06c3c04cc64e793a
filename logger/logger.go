package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	// Info writes regular output to stdout.
	Info *log.Logger

	// Error writes failures to stderr.
	Error *log.Logger

	mu    sync.RWMutex
	level = LevelInfo
)

func init() {
	Info = log.New(os.Stdout, "", log.LstdFlags)
	Error = log.New(os.Stderr, "", log.LstdFlags)
}

// SetLevel sets the threshold used by scoped loggers. Unknown names mean info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	default:
		level = LevelInfo
	}
}

func currentLevel() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput redirects both loggers, mainly for tests.
func SetOutput(w io.Writer) {
	Info.SetOutput(w)
	Error.SetOutput(w)
}

func Println(v ...interface{}) {
	Info.Println(v...)
}

func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	Error.Printf(format, v...)
}

// Fatalf logs to stderr and exits.
func Fatalf(format string, v ...interface{}) {
	Error.Fatalf(format, v...)
}

// Logger is a component-scoped leveled logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type scoped struct {
	prefix string
}

// New returns a Logger that tags every line with [prefix] [LEVEL].
func New(prefix string) Logger {
	return &scoped{prefix: prefix}
}

func (l *scoped) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG", msg, args...)
}

func (l *scoped) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, "INFO", msg, args...)
}

func (l *scoped) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, "WARN", msg, args...)
}

func (l *scoped) Error(msg string, args ...interface{}) {
	l.log(LevelError, "ERROR", msg, args...)
}

func (l *scoped) log(lvl int, tag string, msg string, args ...interface{}) {
	if lvl < currentLevel() {
		return
	}
	line := fmt.Sprintf("[%s] [%s] %s", l.prefix, tag, fmt.Sprintf(msg, args...))
	if lvl >= LevelWarn {
		Error.Println(line)
		return
	}
	Info.Println(line)
}

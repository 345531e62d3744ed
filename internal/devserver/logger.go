package devserver

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Logger writes level-prefixed lines.
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
}

// NewLogger creates a logger writing to w.
func NewLogger(w io.Writer) *Logger {
	return &Logger{logger: log.New(w, "", log.LstdFlags)}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write("INFO: ", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("WARN: ", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERROR: ", format, args...)
}

func (l *Logger) write(prefix, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetPrefix(prefix)
	l.logger.Println(fmt.Sprintf(format, args...))
}

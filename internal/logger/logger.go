// README: JSON action logger shared by all modules.
package logger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

type Logger struct {
	service  string
	hostname string
	mu       sync.Mutex
	out      io.Writer
}

func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(service string, w io.Writer) *Logger {
	h, _ := os.Hostname()
	return &Logger{service: service, hostname: h, out: w}
}

func (l *Logger) log(level, action string, fields map[string]any, err error) {
	if l == nil {
		return
	}
	entry := make(map[string]any, len(fields)+6)
	for k, v := range fields {
		entry[k] = v
	}
	// reserved keys win over caller fields
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["service"] = l.service
	entry["action"] = action
	entry["hostname"] = l.hostname
	if err != nil {
		entry["error"] = err.Error()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.out).Encode(entry)
}

func (l *Logger) Info(action string, fields map[string]any)             { l.log("INFO", action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any)            { l.log("DEBUG", action, fields, nil) }
func (l *Logger) Error(action string, err error, fields map[string]any) { l.log("ERROR", action, fields, err) }

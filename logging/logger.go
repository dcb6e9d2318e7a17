// Package logging provides the structured JSON logger shared by the wallet
// manager, the mint pipeline and the HTTP services.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configured level name to a Level. Unknown names fall back to INFO.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Entry is a single structured log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Duration  *int64         `json:"duration_ms,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Logger writes JSON entries to every configured writer and fans them out to subscribers.
type Logger struct {
	mu          sync.RWMutex
	component   string
	minLevel    Level
	writers     []io.Writer
	subscribers []chan<- Entry
	now         func() time.Time
}

// New creates a Logger for one component (e.g. "upload-server", "wasm").
func New(component string, minLevel Level, writers ...io.Writer) *Logger {
	return &Logger{
		component: component,
		minLevel:  minLevel,
		writers:   writers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Discard returns a logger that drops everything. Used as the default for
// optional logger dependencies.
func Discard() *Logger {
	return New("discard", FATAL+1)
}

// Component reports the name the logger was created with.
func (l *Logger) Component() string {
	return l.component
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.minLevel
}

// Subscribe adds a channel to receive entries as they are written. Slow
// subscribers miss entries rather than blocking the writer.
func (l *Logger) Subscribe(ch chan<- Entry) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, ch)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.subscribers {
			if sub == ch {
				l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Log writes an entry at the given level.
func (l *Logger) Log(level Level, category, message string, fields map[string]any) {
	if !l.Enabled(level) {
		return
	}
	l.write(l.entry(level, category, message, fields))
}

// Debug logs a debug message.
func (l *Logger) Debug(category, message string, fields map[string]any) {
	l.Log(DEBUG, category, message, fields)
}

// Info logs an info message.
func (l *Logger) Info(category, message string, fields map[string]any) {
	l.Log(INFO, category, message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(category, message string, fields map[string]any) {
	l.Log(WARN, category, message, fields)
}

// Error logs an error message with the error text in its own field.
func (l *Logger) Error(category, message string, err error, fields map[string]any) {
	if !l.Enabled(ERROR) {
		return
	}
	entry := l.entry(ERROR, category, message, fields)
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

func (l *Logger) entry(level Level, category, message string, fields map[string]any) Entry {
	return Entry{
		Timestamp: l.now(),
		Level:     level.String(),
		Component: l.component,
		Category:  category,
		Message:   message,
		Fields:    fields,
	}
}

func (l *Logger) write(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}
	data = append(data, '\n')

	l.mu.RLock()
	writers := l.writers
	subscribers := make([]chan<- Entry, len(l.subscribers))
	copy(subscribers, l.subscribers)
	l.mu.RUnlock()

	for _, w := range writers {
		_, _ = w.Write(data)
	}
	for _, ch := range subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Context carries a request or attempt id, a category and fields across
// several log calls.
type Context struct {
	logger    *Logger
	requestID string
	category  string
	fields    map[string]any
}

// WithRequestID creates a logging context correlated by id.
func (l *Logger) WithRequestID(requestID string) *Context {
	return &Context{
		logger:    l,
		requestID: requestID,
		fields:    make(map[string]any),
	}
}

// WithCategory sets the category for this context.
func (c *Context) WithCategory(category string) *Context {
	c.category = category
	return c
}

// WithField adds a field to this context.
func (c *Context) WithField(key string, value any) *Context {
	c.fields[key] = value
	return c
}

func (c *Context) merged(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return c.fields
	}
	out := make(map[string]any, len(c.fields)+len(extra))
	for k, v := range c.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (c *Context) log(level Level, message string, err error, extra map[string]any) {
	if !c.logger.Enabled(level) {
		return
	}
	entry := c.logger.entry(level, c.category, message, c.merged(extra))
	entry.RequestID = c.requestID
	if err != nil {
		entry.Error = err.Error()
	}
	c.logger.write(entry)
}

// Debug logs a debug message with the context's id and fields.
func (c *Context) Debug(message string, extra map[string]any) {
	c.log(DEBUG, message, nil, extra)
}

// Info logs an info message with the context's id and fields.
func (c *Context) Info(message string, extra map[string]any) {
	c.log(INFO, message, nil, extra)
}

// Warn logs a warning with the context's id and fields.
func (c *Context) Warn(message string, extra map[string]any) {
	c.log(WARN, message, nil, extra)
}

// Error logs an error with the context's id and fields.
func (c *Context) Error(message string, err error, extra map[string]any) {
	c.log(ERROR, message, err, extra)
}

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Level represents log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// DefaultTimeFormat is the strftime layout used when Config.TimeFormat is empty.
const DefaultTimeFormat = "%Y/%m/%d %H:%M:%S"

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string // "text" or "json"
	TimeFormat string // strftime layout, "-" disables timestamps
	Output     io.Writer
}

// Logger represents a structured logger
type Logger struct {
	level     Level
	format    string
	component string
	fields    []Field
	stamp     *strftime.Strftime
	out       *output
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger
func New(cfg Config) *Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}

	l := &Logger{
		level:  parseLevel(cfg.Level),
		format: strings.ToLower(cfg.Format),
		out:    &output{w: w},
	}

	layout := cfg.TimeFormat
	if layout == "" {
		layout = DefaultTimeFormat
	}
	if layout != "-" {
		stamp, err := strftime.New(layout)
		if err != nil {
			stamp, _ = strftime.New(DefaultTimeFormat)
		}
		l.stamp = stamp
	}

	return l
}

// WithComponent creates a child logger with a component prefix
func (l *Logger) WithComponent(component string) *Logger {
	child := l.clone()
	child.component = component
	return child
}

// With creates a child logger that adds fields to every entry
func (l *Logger) With(fields ...Field) *Logger {
	child := l.clone()
	child.fields = append(child.fields, fields...)
	return child
}

func (l *Logger) clone() *Logger {
	c := *l
	c.fields = append([]Field(nil), l.fields...)
	return &c
}

// Enabled reports whether entries at lvl are written
func (l *Logger) Enabled(lvl Level) bool {
	return l.level <= lvl
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	if l.level <= DebugLevel {
		l.log("DEBUG", msg, fields...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	if l.level <= InfoLevel {
		l.log("INFO", msg, fields...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	if l.level <= WarnLevel {
		l.log("WARN", msg, fields...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Field) {
	if l.level <= ErrorLevel {
		l.log("ERROR", msg, fields...)
	}
}

func (l *Logger) log(level, msg string, fields ...Field) {
	all := fields
	if len(l.fields) > 0 {
		all = append(append([]Field(nil), l.fields...), fields...)
	}

	now := time.Now()
	var line string
	if l.format == "json" {
		line = l.jsonLine(now, level, msg, all)
	} else {
		line = l.textLine(now, level, msg, all)
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = io.WriteString(l.out.w, line+"\n")
}

func (l *Logger) textLine(now time.Time, level, msg string, fields []Field) string {
	var sb strings.Builder
	if l.stamp != nil {
		sb.WriteString(l.stamp.FormatString(now))
		sb.WriteByte(' ')
	}
	if l.component != "" {
		fmt.Fprintf(&sb, "[%s] ", l.component)
	}
	fmt.Fprintf(&sb, "[%s] %s", level, msg)
	for _, f := range fields {
		fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
	}
	return sb.String()
}

func (l *Logger) jsonLine(now time.Time, level, msg string, fields []Field) string {
	entry := make(map[string]interface{}, len(fields)+4)
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	if l.stamp != nil {
		entry["time"] = l.stamp.FormatString(now)
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	entry["level"] = strings.ToLower(level)
	entry["msg"] = msg

	b, err := json.Marshal(entry)
	if err != nil {
		return l.textLine(now, level, msg, fields)
	}
	return string(b)
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field constructors

// String creates a string field
func String(key, val string) Field {
	return Field{Key: key, Value: val}
}

// Int creates an int field
func Int(key string, val int) Field {
	return Field{Key: key, Value: val}
}

// Uint creates a uint field
func Uint(key string, val uint) Field {
	return Field{Key: key, Value: val}
}

// Uint16 creates a uint16 field
func Uint16(key string, val uint16) Field {
	return Field{Key: key, Value: val}
}

// Bool creates a bool field
func Bool(key string, val bool) Field {
	return Field{Key: key, Value: val}
}

// Duration creates a duration field
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "nil"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, val interface{}) Field {
	return Field{Key: key, Value: val}
}

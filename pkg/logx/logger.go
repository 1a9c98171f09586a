package logx

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Format selects the output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Fields carries structured key/value context.
type Fields map[string]any

// Config holds logger configuration.
type Config struct {
	Level           Level
	Format          Format
	EnableColors    bool
	EnableTimestamp bool
	TimeFormat      string
	Output          io.Writer
}

// DefaultConfig returns console output at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		Output:          os.Stdout,
	}
}

// LoadFromEnv builds a config from LOG_LEVEL and LOG_FORMAT.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if v := strings.ToLower(os.Getenv("LOG_FORMAT")); v == "json" {
		cfg.Format = FormatJSON
		cfg.EnableColors = false
	}
	return cfg
}

// Logger writes formatted entries to a single output.
type Logger struct {
	config    *Config
	formatter Formatter
	mu        sync.Mutex
	writer    io.Writer
	exitFunc  func(int)
}

// NewLogger creates a logger with the given config.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	var f Formatter
	if config.Format == FormatJSON {
		f = &jsonFormatter{config: config}
	} else {
		f = &consoleFormatter{config: config}
	}
	w := config.Output
	if w == nil {
		w = os.Stdout
	}
	return &Logger{config: config, formatter: f, writer: w, exitFunc: os.Exit}
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// SetOutput changes the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if !l.config.Level.Enabled(level) {
		return
	}

	entry := &record{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Error:     err,
		Timestamp: time.Now(),
	}

	out, ferr := l.formatter.Format(entry)
	if ferr != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.writer.Write(out)
}

func (l *Logger) exit(code int) { l.exitFunc(code) }

// WithField starts an entry with one field.
func (l *Logger) WithField(key string, value any) *Entry {
	return newEntry(l).WithField(key, value)
}

// WithFields starts an entry with multiple fields.
func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

// WithError starts an entry carrying an error.
func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

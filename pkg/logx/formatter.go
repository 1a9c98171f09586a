package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// record is a single log event before formatting.
type record struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
}

// Formatter renders a record into bytes.
type Formatter interface {
	Format(r *record) ([]byte, error)
}

// ─── Console ────────────────────────────────────────────────────────────────

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

type consoleFormatter struct {
	config *Config
}

func (f *consoleFormatter) Format(r *record) ([]byte, error) {
	var b strings.Builder

	if f.config.EnableTimestamp {
		b.WriteString(r.Timestamp.Format(f.config.TimeFormat))
		b.WriteByte(' ')
	}

	level := fmt.Sprintf("%-5s", r.Level.String())
	if f.config.EnableColors {
		b.WriteString(f.levelColor(r.Level) + level + colorReset)
	} else {
		b.WriteString(level)
	}

	b.WriteByte(' ')
	b.WriteString(r.Message)

	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
		}
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *consoleFormatter) levelColor(l Level) string {
	switch l {
	case LevelDebug:
		return colorGray
	case LevelInfo:
		return colorBlue
	case LevelWarn:
		return colorYellow
	case LevelError, LevelFatal:
		return colorRed
	default:
		return colorReset
	}
}

// ─── JSON ───────────────────────────────────────────────────────────────────

type jsonFormatter struct {
	config *Config
}

func (f *jsonFormatter) Format(r *record) ([]byte, error) {
	payload := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		payload[k] = v
	}
	payload["level"] = r.Level.String()
	payload["message"] = r.Message
	if f.config.EnableTimestamp {
		payload["timestamp"] = r.Timestamp.Format(f.config.TimeFormat)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

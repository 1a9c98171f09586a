package logx

import "fmt"

// defaultLogger is the process-wide logger, configured from the
// environment at startup.
var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(LoadFromEnv())
}

// SetDefaultLogger replaces the process-wide logger.
func SetDefaultLogger(logger *Logger) { defaultLogger = logger }

// GetDefaultLogger returns the process-wide logger.
func GetDefaultLogger() *Logger { return defaultLogger }

// SetLevel sets the minimum level on the default logger.
func SetLevel(level Level) { defaultLogger.SetLevel(level) }

func Debug(msg string) { defaultLogger.log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { defaultLogger.log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { defaultLogger.log(LevelWarn, msg, nil, nil) }
func Error(msg string) { defaultLogger.log(LevelError, msg, nil, nil) }

// Fatal logs at fatal level and exits the process.
func Fatal(msg string) {
	defaultLogger.log(LevelFatal, msg, nil, nil)
	defaultLogger.exit(1)
}

func Debugf(format string, args ...any) { Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...any) { Fatal(fmt.Sprintf(format, args...)) }

// WithField starts an entry on the default logger.
func WithField(key string, value any) *Entry { return defaultLogger.WithField(key, value) }

// WithFields starts an entry with multiple fields on the default logger.
func WithFields(fields Fields) *Entry { return defaultLogger.WithFields(fields) }

// WithError starts an entry carrying an error on the default logger.
func WithError(err error) *Entry { return defaultLogger.WithError(err) }

package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LogFormat represents the output format
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Record represents a single log record
type Record struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Output is a log output destination
type Output interface {
	Write(rec Record) error
	Close() error
}

// Logger provides leveled logging to one or more outputs
type Logger struct {
	level   LogLevel
	outputs []Output
	mu      sync.RWMutex
}

// NewLogger creates a logger. With debugToConsole set, records are also
// written to stderr; logFile may be empty when console output is enabled.
func NewLogger(levelStr, logFile string, debugToConsole bool) (*Logger, error) {
	logger := &Logger{level: parseLogLevel(levelStr)}

	if debugToConsole {
		logger.outputs = append(logger.outputs, NewConsoleOutput(os.Stderr, FormatText))
	}
	if logFile != "" {
		fileOut, err := NewFileOutput(logFile, FormatText)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file output %s: %w", logFile, err)
		}
		logger.outputs = append(logger.outputs, fileOut)
	}
	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, NewConsoleOutput(os.Stderr, FormatText))
	}

	return logger, nil
}

func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func levelToString(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l *Logger) log(level LogLevel, msg string) {
	if l.level > level {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	rec := Record{
		Timestamp: time.Now(),
		Level:     levelToString(level),
		Message:   msg,
	}

	for _, output := range l.outputs {
		if err := output.Write(rec); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write log record: %v\n", err)
		}
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) { l.log(LevelDebug, msg) }

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

// Info logs an info message
func (l *Logger) Info(msg string) { l.log(LevelInfo, msg) }

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) { l.log(LevelWarn, msg) }

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(msg string) { l.log(LevelError, msg) }

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

// SetLevel changes the minimum level written
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes all outputs
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, output := range l.outputs {
		if err := output.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ConsoleOutput writes log records to a writer (normally stderr)
type ConsoleOutput struct {
	writer io.Writer
	format LogFormat
	mu     sync.Mutex
}

// NewConsoleOutput creates a new console output
func NewConsoleOutput(writer io.Writer, format LogFormat) Output {
	return &ConsoleOutput{writer: writer, format: format}
}

// Write writes a log record to the console
func (c *ConsoleOutput) Write(rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeRecord(c.writer, rec, c.format)
}

// Close closes the console output
func (c *ConsoleOutput) Close() error { return nil }

// FileOutput appends log records to a file
type FileOutput struct {
	file   *os.File
	format LogFormat
	mu     sync.Mutex
}

// NewFileOutput creates a new file output
func NewFileOutput(path string, format LogFormat) (Output, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: file, format: format}, nil
}

// Write writes a log record to the file
func (f *FileOutput) Write(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeRecord(f.file, rec, f.format)
}

// Close closes the file
func (f *FileOutput) Close() error { return f.file.Close() }

func writeRecord(w io.Writer, rec Record, format LogFormat) error {
	var output string
	if format == FormatJSON {
		data, err := sonic.Marshal(rec)
		if err != nil {
			return err
		}
		output = string(data)
	} else {
		output = fmt.Sprintf("%s [%s] %s",
			rec.Timestamp.Format("2006/01/02 15:04:05"), rec.Level, rec.Message)
		if len(rec.Fields) > 0 {
			fieldStrs := make([]string, 0, len(rec.Fields))
			for k, v := range rec.Fields {
				fieldStrs = append(fieldStrs, fmt.Sprintf("%s=%v", k, v))
			}
			output += " " + strings.Join(fieldStrs, " ")
		}
	}

	_, err := fmt.Fprintln(w, output)
	return err
}

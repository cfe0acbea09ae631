package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Format selects the log line layout
type Format string

// Supported formats
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a log format string
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid log format: %s (must be text or json)", s)
	}
}

// Options configures the root logger
type Options struct {
	Level  LogLevel
	Format Format
	// File, when set, receives log output instead of stderr.
	File string
	// Interactive is true when a full-screen UI owns the terminal. Without a
	// file sink, output is then dropped unless Level is debug.
	Interactive bool
	// Output overrides every other sink. Used by tests.
	Output io.Writer
}

// New builds the root logger and returns it tagged with the component name.
// The returned closer releases the log file, if one was opened.
func New(component string, opts Options) (*logrus.Entry, io.Closer, error) {
	logger := logrus.New()
	logger.SetLevel(opts.Level.Logrus())

	switch opts.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&TextFormatter{})
	}

	var closer io.Closer = nopCloser{}
	switch {
	case opts.Output != nil:
		logger.SetOutput(opts.Output)
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(file)
		closer = file
	case opts.Interactive && opts.Level > LogLevelDebug:
		logger.SetOutput(io.Discard)
	default:
		logger.SetOutput(os.Stderr)
	}

	return logger.WithField("component", component), closer, nil
}

// Component derives a child logger for a sub-component
func Component(parent *logrus.Entry, name string) *logrus.Entry {
	if parent == nil {
		return Discard().WithField("component", name)
	}
	return parent.WithField("component", name)
}

// Discard returns a logger that drops everything. Handy as a default for
// optional logger fields.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// IsTerminal reports whether f is attached to an interactive terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// TextFormatter renders one entry per line:
// "2006-01-02 15:04:05 [LEVEL] [component] message key=value ..."
type TextFormatter struct {
	DisableTimestamp bool
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
		b.WriteString(" ")
	}

	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	b.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(levelStr)))

	if component, ok := entry.Data["component"]; ok {
		b.WriteString(fmt.Sprintf(" [%v]", component))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	// sorted so output is stable
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", key, entry.Data[key]))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

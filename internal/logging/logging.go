// Package logging provides log levels and logger construction for cvs-compass.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogLevel represents logging verbosity
type LogLevel int

// Log level constants from most verbose to least verbose
const (
	LogLevelDebug   LogLevel = iota // Debug level - most verbose
	LogLevelInfo                    // Info level - informational messages
	LogLevelWarning                 // Warning level - warning messages
	LogLevelError                   // Error level - error messages only
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarning:
		return "warning"
	default:
		return "error"
	}
}

// Logrus maps the level onto its logrus equivalent
func (l LogLevel) Logrus() logrus.Level {
	switch l {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelWarning:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// ParseLogLevel parses a log level string
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warning":
		return LogLevelWarning, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelError, fmt.Errorf("invalid log level: %s (must be debug, info, warning, or error)", s)
	}
}

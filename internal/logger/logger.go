package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var (
	debugMode bool
	base      *log.Logger
)

func init() {
	base = newLogger(os.Stderr)
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		Level:           log.InfoLevel,
	})
}

// SetOutput redirects all log output. Used by tests and by the MCP server,
// whose stdout carries protocol traffic.
func SetOutput(w io.Writer) {
	level := base.GetLevel()
	base = newLogger(w)
	base.SetLevel(level)
}

func SetDebugMode(enabled bool) {
	debugMode = enabled
	if debugMode {
		base.SetLevel(log.DebugLevel)
		Debug("Debug mode enabled")
		return
	}
	base.SetLevel(log.InfoLevel)
}

func IsDebugMode() bool {
	return debugMode
}

func Debug(format string, args ...interface{}) {
	base.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	base.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	base.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	base.Errorf(format, args...)
}

// Request logging function for HTTP requests
func LogRequest(method, path, remoteAddr string) {
	if debugMode {
		Debug("HTTP %s %s from %s", method, path, remoteAddr)
	}
}

// Response logging function for HTTP responses
func LogResponse(method, path string, statusCode int, duration string) {
	if debugMode {
		Debug("HTTP %s %s -> %d (%s)", method, path, statusCode, duration)
	}
}

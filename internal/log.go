package internal

import (
	"io"
	"os"
	"strings"
	"sync"
)

var (
	// Global logger instance
	globalLogger *SecureLogger
	loggerMutex  sync.RWMutex
)

// InitLogger initializes the global logger with the given configuration.
func InitLogger(config *Config) error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	level := parseLogLevel(config.LogLevel)

	var output io.Writer = os.Stderr
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return NewValidationError("log_file", "failed to open log file: "+err.Error()).
				WithSuggestion("check file permissions and path validity")
		}
		output = file
	}

	globalLogger = NewSecureLogger(output, level, config.EnableDebug, config.QuietMode)

	return nil
}

// GetLogger returns the global logger instance, creating a default one on
// first use.
func GetLogger() *SecureLogger {
	loggerMutex.RLock()
	logger := globalLogger
	loggerMutex.RUnlock()

	if logger != nil {
		return logger
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefaultLogger(false, false)
	}
	return globalLogger
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Convenience functions for global logging, used throughout the core so
// that the retry wrapper and the worker pool can log without threading a
// logger through every call.

func LogError(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

func LogWarn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func LogInfo(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func LogDebug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// LogTransferError logs a TransferError, including its HTTP status and
// suggestion when present.
func LogTransferError(err *TransferError) {
	logger := GetLogger()
	msg := err.Error()
	if err.Suggestion != "" {
		msg += " (" + err.Suggestion + ")"
	}
	switch err.Kind {
	case KindIntegrity, KindAuthorization:
		logger.Error("%s", msg)
	default:
		logger.Error("%s", msg)
	}
}

// LogValidationError logs a ValidationError.
func LogValidationError(err *ValidationError) {
	GetLogger().Error("%s", err.Error())
}

func SetLogLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

func SetDebugMode(debug bool) {
	GetLogger().SetDebug(debug)
}

func SetQuietMode(quiet bool) {
	GetLogger().SetQuiet(quiet)
}

// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "tradeguard", "logs", "tradeguard.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	// Create multi-writer
	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	// Set log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Create logger
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// SetInfoLevel sets the global log level to info.
func SetInfoLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTradeLogged logs a recorded trade.
func LogTradeLogged(logger zerolog.Logger, tradeID string, resultR float64, ruleBreaks []string) {
	logger.Info().
		Str("event", "trade_logged").
		Str("trade_id", tradeID).
		Float64("result_r", resultR).
		Strs("rule_breaks", ruleBreaks).
		Msg("Trade logged")
}

// LogTradeBlocked logs a trade refused by the discipline gate.
func LogTradeBlocked(logger zerolog.Logger, reasons []string) {
	logger.Warn().
		Str("event", "trade_blocked").
		Strs("reasons", reasons).
		Msg("Trade blocked by gate")
}

// LogGateDecision logs the outcome of a gate evaluation.
func LogGateDecision(logger zerolog.Logger, mode string, canTrade bool, reasons, warnings []string) {
	logger.Debug().
		Str("event", "gate_decision").
		Str("mode", mode).
		Bool("can_trade", canTrade).
		Strs("reasons", reasons).
		Strs("warnings", warnings).
		Msg("Gate evaluated")
}

// LogOverrideActivated logs an emergency override activation.
func LogOverrideActivated(logger zerolog.Logger, until, cooldownUntil time.Time) {
	logger.Warn().
		Str("event", "override_activated").
		Time("until", until).
		Time("cooldown_until", cooldownUntil).
		Msg("Override activated")
}

// LogOverrideCleared logs a manual end of the override window.
func LogOverrideCleared(logger zerolog.Logger) {
	logger.Info().
		Str("event", "override_cleared").
		Msg("Override cleared")
}

// LogSettingChanged logs an admin settings edit.
func LogSettingChanged(logger zerolog.Logger, key, oldValue, newValue string) {
	logger.Info().
		Str("event", "setting_changed").
		Str("key", key).
		Str("old", oldValue).
		Str("new", newValue).
		Msg("Setting changed")
}

// Package audit writes an append-only JSONL trail of the journal actions
// that matter for discipline review: gate decisions that blocked or were
// forced through, override usage, and settings changes.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Trade events
	EventTradeLogged  EventType = "TRADE_LOGGED"
	EventTradeForced  EventType = "TRADE_FORCED"
	EventTradeBlocked EventType = "TRADE_BLOCKED"
	EventTradeDeleted EventType = "TRADE_DELETED"

	// Override events
	EventOverrideActivated EventType = "OVERRIDE_ACTIVATED"
	EventOverrideCleared   EventType = "OVERRIDE_CLEARED"

	// Settings events
	EventModeChanged  EventType = "MODE_CHANGED"
	EventLimitChanged EventType = "LIMIT_CHANGED"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Day       string                 `json:"day,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Logger appends audit events to a rotated JSONL file. One logger per
// process; every event carries the same session ID.
type Logger struct {
	writer    *lumberjack.Logger
	mu        sync.Mutex
	sessionID string
}

// Config holds audit logger configuration.
type Config struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration. Audit files are
// kept for a year; that is the whole point of the trail.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogDir:     filepath.Join(home, ".config", "tradeguard", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewLogger creates an audit logger writing under cfg.LogDir.
func NewLogger(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return &Logger{
		writer:    writer,
		sessionID: generateSessionID(),
	}, nil
}

// Log appends one event. The timestamp and session ID are stamped here.
func (l *Logger) Log(ctx context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = time.Now().UTC()
	event.SessionID = l.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogTradeLogged records a trade entering the journal. A trade logged with
// --force while the gate was closed gets its own event type.
func (l *Logger) LogTradeLogged(ctx context.Context, tradeID, day string, resultR float64, ruleBreaks []string, forced bool) error {
	eventType := EventTradeLogged
	if forced {
		eventType = EventTradeForced
	}

	return l.Log(ctx, Event{
		EventType: eventType,
		TradeID:   tradeID,
		Day:       day,
		Success:   true,
		Details: map[string]interface{}{
			"result_r":    resultR,
			"rule_breaks": ruleBreaks,
			"forced":      forced,
		},
	})
}

// LogTradeBlocked records an attempt the gate rejected.
func (l *Logger) LogTradeBlocked(ctx context.Context, day string, reasons []string) error {
	return l.Log(ctx, Event{
		EventType: EventTradeBlocked,
		Day:       day,
		Success:   false,
		ErrorMsg:  "blocked by discipline gate",
		Details: map[string]interface{}{
			"reasons": reasons,
		},
	})
}

// LogTradeDeleted records a journal row removal.
func (l *Logger) LogTradeDeleted(ctx context.Context, tradeID string) error {
	return l.Log(ctx, Event{
		EventType: EventTradeDeleted,
		TradeID:   tradeID,
		Success:   true,
	})
}

// LogOverrideActivated records an emergency override with its window.
func (l *Logger) LogOverrideActivated(ctx context.Context, until, cooldownUntil time.Time) error {
	return l.Log(ctx, Event{
		EventType: EventOverrideActivated,
		Success:   true,
		Details: map[string]interface{}{
			"until":          until.UTC().Format(time.RFC3339),
			"cooldown_until": cooldownUntil.UTC().Format(time.RFC3339),
		},
	})
}

// LogOverrideCleared records an override ended by hand.
func (l *Logger) LogOverrideCleared(ctx context.Context) error {
	return l.Log(ctx, Event{
		EventType: EventOverrideCleared,
		Success:   true,
	})
}

// LogModeChanged records a demo/real switch.
func (l *Logger) LogModeChanged(ctx context.Context, from, to string) error {
	return l.Log(ctx, Event{
		EventType: EventModeChanged,
		Action:    to,
		Success:   true,
		Details: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	})
}

// LogLimitChanged records a gate setting edit.
func (l *Logger) LogLimitChanged(ctx context.Context, key, oldValue, newValue string) error {
	return l.Log(ctx, Event{
		EventType: EventLimitChanged,
		Action:    key,
		Success:   true,
		Details: map[string]interface{}{
			"key": key,
			"old": oldValue,
			"new": newValue,
		},
	})
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	return l.writer.Close()
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

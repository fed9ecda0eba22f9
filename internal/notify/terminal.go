package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// TerminalChannel prints notifications to the terminal. Sends are
// synchronous; a CLI invocation is short-lived and watch mode renders
// between schedule ticks, so there is nothing to buffer.
type TerminalChannel struct {
	out          io.Writer
	mu           sync.Mutex
	enabled      bool
	colorEnabled bool
	bellEnabled  bool
}

// NewTerminalChannel creates a terminal channel writing to stdout.
func NewTerminalChannel(colorEnabled bool) *TerminalChannel {
	return &TerminalChannel{
		out:          os.Stdout,
		enabled:      true,
		colorEnabled: colorEnabled,
		bellEnabled:  true,
	}
}

// SetOutput redirects the channel, used by tests.
func (tc *TerminalChannel) SetOutput(w io.Writer) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.out = w
}

// SetBellEnabled enables or disables the terminal bell.
func (tc *TerminalChannel) SetBellEnabled(enabled bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.bellEnabled = enabled
}

// Name returns the name of the channel.
func (tc *TerminalChannel) Name() string {
	return "terminal"
}

// IsEnabled returns whether the channel is enabled.
func (tc *TerminalChannel) IsEnabled() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.enabled
}

// Send prints the notification. High-priority events ring the bell.
func (tc *TerminalChannel) Send(ctx context.Context, n Notification) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !tc.enabled {
		return nil
	}

	if tc.bellEnabled && n.Priority >= 3 {
		fmt.Fprint(tc.out, "\a")
	}

	_, err := fmt.Fprintln(tc.out, FormatNotification(n, tc.colorEnabled))
	return err
}

// FormatNotification formats a notification for terminal display.
func FormatNotification(n Notification, colorEnabled bool) string {
	var sb strings.Builder

	timestamp := n.Timestamp.Format("15:04:05")

	var typeIndicator, color, resetColor string
	if colorEnabled {
		resetColor = "\033[0m"
	}

	switch n.Type {
	case NotificationGate:
		typeIndicator = "🛡️  GATE"
		if colorEnabled {
			color = "\033[33m" // Yellow
		}
	case NotificationReminder:
		typeIndicator = "⏰ REMINDER"
		if colorEnabled {
			color = "\033[36m" // Cyan
		}
	case NotificationError:
		typeIndicator = "❌ ERROR"
		if colorEnabled {
			color = "\033[31m" // Red
		}
	default:
		typeIndicator = "ℹ️  INFO"
		if colorEnabled {
			color = "\033[37m" // White
		}
	}

	sb.WriteString(fmt.Sprintf("%s[%s] %s%s", color, timestamp, typeIndicator, resetColor))
	sb.WriteString(fmt.Sprintf(" | %s", n.Title))

	if n.Message != "" {
		for _, line := range strings.Split(n.Message, "\n") {
			sb.WriteString(fmt.Sprintf("\n    %s", line))
		}
	}

	return sb.String()
}

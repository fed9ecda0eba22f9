// Package notify delivers gate events and journal reminders to the
// channels the user has configured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradeguard/internal/config"
	"tradeguard/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendGateClosed(ctx context.Context, day string, reasons []string) error
	SendGateReopened(ctx context.Context, day string) error
	SendPlanReminder(ctx context.Context, day string) error
	SendCloseoutReminder(ctx context.Context, day string) error
	SendError(ctx context.Context, err error, errContext string) error
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Priority  int // higher = more important
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationGate     NotificationType = "gate"
	NotificationReminder NotificationType = "reminder"
	NotificationError    NotificationType = "error"
	NotificationInfo     NotificationType = "info"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []Channel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier from the notification config.
// The terminal channel is added by the caller; only remote channels are
// wired from config.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]Channel, 0),
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookChannel(cfg.Webhook))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendGateClosed announces that the discipline gate has locked for the day.
func (mn *MultiNotifier) SendGateClosed(ctx context.Context, day string, reasons []string) error {
	message := fmt.Sprintf("Day: %s\n%s", day, strings.Join(reasons, "\n"))

	return mn.Send(ctx, Notification{
		Type:     NotificationGate,
		Title:    "🚫 Gate closed: no more trades today",
		Message:  message,
		Priority: 3,
		Data: map[string]interface{}{
			"day":       day,
			"can_trade": false,
			"reasons":   reasons,
		},
	})
}

// SendGateReopened announces that the gate is open again, usually after a
// deletion or a new day.
func (mn *MultiNotifier) SendGateReopened(ctx context.Context, day string) error {
	return mn.Send(ctx, Notification{
		Type:     NotificationGate,
		Title:    "✅ Gate open",
		Message:  fmt.Sprintf("Day: %s", day),
		Priority: 2,
		Data: map[string]interface{}{
			"day":       day,
			"can_trade": true,
		},
	})
}

// SendPlanReminder nudges for today's missing plan.
func (mn *MultiNotifier) SendPlanReminder(ctx context.Context, day string) error {
	return mn.Send(ctx, Notification{
		Type:     NotificationReminder,
		Title:    "📝 Daily plan missing",
		Message:  fmt.Sprintf("No plan saved for %s yet. Write one before the first trade.", day),
		Priority: 2,
		Data: map[string]interface{}{
			"day":  day,
			"kind": "plan",
		},
	})
}

// SendCloseoutReminder nudges for a missing end-of-day review.
func (mn *MultiNotifier) SendCloseoutReminder(ctx context.Context, day string) error {
	return mn.Send(ctx, Notification{
		Type:     NotificationReminder,
		Title:    "🌙 Closeout missing",
		Message:  fmt.Sprintf("No closeout saved for %s. Review the session while it is fresh.", day),
		Priority: 2,
		Data: map[string]interface{}{
			"day":  day,
			"kind": "closeout",
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:     NotificationError,
		Title:    "❌ Error",
		Message:  message,
		Priority: 3,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// WebhookChannel sends notifications via HTTP webhook. Sends are retried
// with backoff so a flaky endpoint does not eat gate events.
type WebhookChannel struct {
	url     string
	enabled bool
	client  *http.Client
	retry   utils.RetryConfig
}

// NewWebhookChannel creates a new WebhookChannel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: utils.DefaultRetryConfig(),
	}
}

// Name returns the name of the channel.
func (w *WebhookChannel) Name() string {
	return "webhook"
}

// IsEnabled returns whether the channel is enabled.
func (w *WebhookChannel) IsEnabled() bool {
	return w.enabled
}

// Send posts the notification as JSON.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return utils.Retry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "TradeGuard/1.0")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// NoOpNotifier is a notifier that does nothing, for tests and for runs
// with notifications disabled.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendGateClosed does nothing.
func (n *NoOpNotifier) SendGateClosed(ctx context.Context, day string, reasons []string) error {
	return nil
}

// SendGateReopened does nothing.
func (n *NoOpNotifier) SendGateReopened(ctx context.Context, day string) error {
	return nil
}

// SendPlanReminder does nothing.
func (n *NoOpNotifier) SendPlanReminder(ctx context.Context, day string) error {
	return nil
}

// SendCloseoutReminder does nothing.
func (n *NoOpNotifier) SendCloseoutReminder(ctx context.Context, day string) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return nil
}

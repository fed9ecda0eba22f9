package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeguard/internal/config"
)

func TestMultiNotifier_FanOutToTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminalChannel(false)
	term.SetOutput(&buf)
	term.SetBellEnabled(false)

	mn := NewMultiNotifier(&config.NotificationConfig{})
	mn.AddChannel(term)

	err := mn.SendGateClosed(context.Background(), "2025-03-10", []string{"daily trade limit reached (3 of 3)"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Gate closed")
	assert.Contains(t, out, "2025-03-10")
	assert.Contains(t, out, "daily trade limit reached")
}

func TestTerminalChannel_BellOnHighPriority(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminalChannel(false)
	term.SetOutput(&buf)

	require.NoError(t, term.Send(context.Background(), Notification{
		Type:     NotificationGate,
		Title:    "🚫 Gate closed: no more trades today",
		Priority: 3,
	}))
	assert.Contains(t, buf.String(), "\a")

	buf.Reset()
	require.NoError(t, term.Send(context.Background(), Notification{
		Type:     NotificationReminder,
		Title:    "📝 Daily plan missing",
		Priority: 2,
	}))
	assert.NotContains(t, buf.String(), "\a")
}

func TestWebhookChannel_PostsJSON(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL})
	require.True(t, ch.IsEnabled())

	err := ch.Send(context.Background(), Notification{
		Type:    NotificationReminder,
		Title:   "📝 Daily plan missing",
		Message: "No plan saved for 2025-03-10 yet.",
		Data:    map[string]interface{}{"day": "2025-03-10"},
	})
	require.NoError(t, err)

	assert.Equal(t, "reminder", got["type"])
	assert.Equal(t, "📝 Daily plan missing", got["title"])
	data, ok := got["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-03-10", data["day"])
}

func TestWebhookChannel_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL})

	err := ch.Send(context.Background(), Notification{Type: NotificationGate, Title: "✅ Gate open"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookChannel_DisabledWithoutURL(t *testing.T) {
	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: ""})
	assert.False(t, ch.IsEnabled())
	assert.NoError(t, ch.Send(context.Background(), Notification{Type: NotificationInfo}))
}

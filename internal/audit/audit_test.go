package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeguard/internal/audit"
)

func newTestLogger(t *testing.T) (*audit.Logger, string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := audit.NewLogger(audit.Config{
		LogDir:     dir,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, filepath.Join(dir, "audit.log")
}

func readEvents(t *testing.T, path string) []audit.Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []audit.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev audit.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestLogger_WritesOneJSONLinePerEvent(t *testing.T) {
	logger, path := newTestLogger(t)
	ctx := context.Background()

	require.NoError(t, logger.LogTradeBlocked(ctx, "2025-03-10", []string{"daily trade limit reached (3 of 3)"}))
	require.NoError(t, logger.LogTradeLogged(ctx, "trade-1", "2025-03-10", -1.5, []string{"FOMO_ENTRY"}, true))
	require.NoError(t, logger.LogTradeDeleted(ctx, "trade-1"))

	events := readEvents(t, path)
	require.Len(t, events, 3)

	assert.Equal(t, audit.EventTradeBlocked, events[0].EventType)
	assert.False(t, events[0].Success)
	assert.Equal(t, "2025-03-10", events[0].Day)

	// Forced entries get their own event type.
	assert.Equal(t, audit.EventTradeForced, events[1].EventType)
	assert.Equal(t, "trade-1", events[1].TradeID)
	assert.True(t, events[1].Success)

	assert.Equal(t, audit.EventTradeDeleted, events[2].EventType)
}

func TestLogger_StampsSessionAndTimestamp(t *testing.T) {
	logger, path := newTestLogger(t)
	ctx := context.Background()

	require.NoError(t, logger.LogOverrideCleared(ctx))
	require.NoError(t, logger.LogModeChanged(ctx, "demo", "real"))

	events := readEvents(t, path)
	require.Len(t, events, 2)

	// One process, one session.
	assert.NotEmpty(t, events[0].SessionID)
	assert.Equal(t, events[0].SessionID, events[1].SessionID)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, audit.EventModeChanged, events[1].EventType)
	assert.Equal(t, "real", events[1].Action)
	assert.Equal(t, "demo", events[1].Details["from"])
}

func TestLogger_LimitChangeCarriesOldAndNew(t *testing.T) {
	logger, path := newTestLogger(t)

	require.NoError(t, logger.LogLimitChanged(context.Background(), "maxTradesPerDay", "3", "5"))

	events := readEvents(t, path)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventLimitChanged, events[0].EventType)
	assert.Equal(t, "maxTradesPerDay", events[0].Details["key"])
	assert.Equal(t, "3", events[0].Details["old"])
	assert.Equal(t, "5", events[0].Details["new"])
}

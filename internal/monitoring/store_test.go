package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog_InsertAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.db")
	rl, err := OpenRequestLog(path)
	require.NoError(t, err)
	defer func() { _ = rl.Close() }()

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, op := range []string{"chat", "image", "agent"} {
		require.NoError(t, rl.Insert(&RequestEvent{
			RequestID:  "req-" + op,
			Timestamp:  now.Add(time.Duration(i) * time.Second),
			Method:     "POST",
			Path:       "/api/" + op,
			ClientIP:   "1.2.3.4",
			Operation:  op,
			FreeTier:   true,
			QuotaUsed:  i + 1,
			QuotaLimit: 10,
			StatusCode: 200,
			LatencyMs:  12,
			Success:    true,
		}))
	}

	events, err := rl.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "req-agent", events[0].RequestID)
	assert.Equal(t, "req-image", events[1].RequestID)
	assert.True(t, events[0].FreeTier)
	assert.True(t, events[0].Success)
	assert.Equal(t, 3, events[0].QuotaUsed)
	assert.Equal(t, now.Add(2*time.Second), events[0].Timestamp)
}

func TestRequestLog_RecentOnEmptyLog(t *testing.T) {
	rl, err := OpenRequestLog(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer func() { _ = rl.Close() }()

	events, err := rl.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTracker_DisabledIsNoop(t *testing.T) {
	tr, err := NewTracker(TelemetryConfig{Enabled: false, LogPath: filepath.Join(t.TempDir(), "log.jsonl")})
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "x"})
	require.NoError(t, tr.Close())
}

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "a", Operation: "chat", StatusCode: 200, Success: true})
	tr.RecordRequest(&RequestEvent{RequestID: "b", Operation: "image", StatusCode: 429})
	require.NoError(t, tr.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"a"`)
	assert.Contains(t, lines[1], `"request_id":"b"`)
}

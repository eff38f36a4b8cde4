// Package monitoring - telemetry.go records events to JSONL and sqlite.
//
// DESIGN: Tracker appends structured events as JSONL (one JSON object per
// line) immediately after each request for real-time inspection, and
// optionally mirrors them into a sqlite request log for queryable history.
// Recording failures are logged and swallowed; telemetry must never fail
// a request.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording.
type Tracker struct {
	config         TelemetryConfig
	requestLogPath string
	store          *RequestLog
	requestCount   int
	mu             sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{config: cfg}

	if !cfg.Enabled {
		return t, nil
	}

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
			return nil, err
		}
		t.requestLogPath = cfg.LogPath
		if _, err := os.Stat(cfg.LogPath); os.IsNotExist(err) {
			if f, err := os.Create(cfg.LogPath); err == nil {
				_ = f.Close()
			}
		}
	}

	if cfg.SQLitePath != "" {
		store, err := OpenRequestLog(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		t.store = store
	}

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// RecordRequest records a request event.
func (t *Tracker) RecordRequest(event *RequestEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		reqID := event.RequestID
		if len(reqID) > 8 {
			reqID = reqID[:8]
		}
		log.Info().
			Str("request_id", reqID).
			Str("operation", event.Operation).
			Int("status", event.StatusCode).
			Bool("free_tier", event.FreeTier).
			Int64("latency_ms", event.LatencyMs).
			Msg("telemetry")
	}

	if t.requestLogPath != "" {
		if err := appendJSONL(t.requestLogPath, event); err != nil {
			log.Error().Err(err).Str("path", t.requestLogPath).Msg("telemetry: failed to write request event")
		} else {
			t.requestCount++
		}
	}

	if t.store != nil {
		if err := t.store.Insert(event); err != nil {
			log.Error().Err(err).Msg("telemetry: failed to insert request event")
		}
	}
}

// RecordInit records a gateway initialization event.
func (t *Tracker) RecordInit(event *InitEvent) {
	if !t.config.Enabled || event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.requestLogPath != "" {
		if err := appendJSONL(t.requestLogPath, event); err != nil {
			log.Error().Err(err).Str("path", t.requestLogPath).Msg("telemetry: failed to write init event")
		}
	}
}

// Close flushes and closes the tracker's sinks.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.requestLogPath != "" && t.requestCount > 0 {
		log.Info().
			Str("path", t.requestLogPath).
			Int("events", t.requestCount).
			Msg("telemetry: session complete")
	}

	if t.store != nil {
		return t.store.Close()
	}
	return nil
}

// Package monitoring - store.go persists request events to sqlite.
//
// The JSONL log is append-only and cheap; the sqlite log exists for
// after-the-fact queries (per-IP history, failure rates) without parsing
// log files. Both receive the same events.
package monitoring

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

const requestLogSchema = `
CREATE TABLE IF NOT EXISTS request_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id      TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	method          TEXT NOT NULL,
	path            TEXT NOT NULL,
	client_ip       TEXT NOT NULL,
	operation       TEXT NOT NULL,
	model           TEXT,
	free_tier       INTEGER NOT NULL,
	quota_used      INTEGER,
	quota_limit     INTEGER,
	status_code     INTEGER NOT NULL,
	upstream_status INTEGER,
	input_tokens    INTEGER,
	output_tokens   INTEGER,
	tokens_estimate INTEGER,
	latency_ms      INTEGER NOT NULL,
	success         INTEGER NOT NULL,
	error           TEXT
);
CREATE INDEX IF NOT EXISTS idx_request_events_client_ip ON request_events(client_ip);
CREATE INDEX IF NOT EXISTS idx_request_events_timestamp ON request_events(timestamp);
`

// RequestLog is a sqlite-backed request event log.
type RequestLog struct {
	db *sql.DB
}

// OpenRequestLog opens (creating if necessary) the sqlite request log.
func OpenRequestLog(path string) (*RequestLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(requestLogSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RequestLog{db: db}, nil
}

// Insert appends one request event.
func (l *RequestLog) Insert(ev *RequestEvent) error {
	_, err := l.db.Exec(`
		INSERT INTO request_events (
			request_id, timestamp, method, path, client_ip, operation, model,
			free_tier, quota_used, quota_limit, status_code, upstream_status,
			input_tokens, output_tokens, tokens_estimate, latency_ms, success, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID, ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.Method, ev.Path,
		ev.ClientIP, ev.Operation, ev.Model, boolInt(ev.FreeTier), ev.QuotaUsed,
		ev.QuotaLimit, ev.StatusCode, ev.UpstreamStatus, ev.InputTokens,
		ev.OutputTokens, ev.TokensEstimate, ev.LatencyMs, boolInt(ev.Success), ev.Error,
	)
	return err
}

// Recent returns the most recent n events, newest first.
func (l *RequestLog) Recent(n int) ([]RequestEvent, error) {
	rows, err := l.db.Query(`
		SELECT request_id, timestamp, method, path, client_ip, operation, model,
			free_tier, quota_used, quota_limit, status_code, upstream_status,
			input_tokens, output_tokens, tokens_estimate, latency_ms, success, error
		FROM request_events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []RequestEvent
	for rows.Next() {
		var ev RequestEvent
		var ts string
		var freeTier, success int
		if err := rows.Scan(
			&ev.RequestID, &ts, &ev.Method, &ev.Path, &ev.ClientIP, &ev.Operation,
			&ev.Model, &freeTier, &ev.QuotaUsed, &ev.QuotaLimit, &ev.StatusCode,
			&ev.UpstreamStatus, &ev.InputTokens, &ev.OutputTokens, &ev.TokensEstimate,
			&ev.LatencyMs, &success, &ev.Error,
		); err != nil {
			return nil, err
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.FreeTier = freeTier != 0
		ev.Success = success != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (l *RequestLog) Close() error {
	return l.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

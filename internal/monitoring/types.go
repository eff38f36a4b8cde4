// Package monitoring types - telemetry event and config contracts.
package monitoring

import "time"

// TelemetryConfig controls event recording.
type TelemetryConfig struct {
	Enabled     bool
	LogPath     string // JSONL request log; empty disables file output
	SQLitePath  string // sqlite request log; empty disables the database
	LogToStdout bool   // also log a one-line summary per request
}

// RequestEvent describes one request through the gateway.
type RequestEvent struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	ClientIP       string    `json:"client_ip"`
	Operation      string    `json:"operation"` // chat | image | agent
	Model          string    `json:"model,omitempty"`
	FreeTier       bool      `json:"free_tier"`
	QuotaUsed      int       `json:"quota_used,omitempty"`
	QuotaLimit     int       `json:"quota_limit,omitempty"`
	StatusCode     int       `json:"status_code"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	InputTokens    int       `json:"input_tokens,omitempty"`
	OutputTokens   int       `json:"output_tokens,omitempty"`
	TokensEstimate int       `json:"tokens_estimate,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
}

// InitEvent is recorded once at startup.
type InitEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Event          string    `json:"event"`
	ServerPort     int       `json:"server_port"`
	DailyFreeLimit int       `json:"daily_free_limit"`
	ChatEndpoint   string    `json:"chat_endpoint"`
	ImageEndpoint  string    `json:"image_endpoint"`
	AgentAppSet    bool      `json:"agent_app_set"`
	HasChatKey     bool      `json:"has_chat_key"`
	HasImageKey    bool      `json:"has_image_key"`
	HasAgentKey    bool      `json:"has_agent_key"`
}

// Package provider types - operation and format contracts for upstream dispatch.
//
// DESIGN: Each inbound request is turned into exactly one Operation value
// (Chat, Image or Agent), consumed once by the request builder and then
// discarded. Caller-supplied endpoint/model/key overrides always win over
// the configured defaults; the builder resolves them and fails early with
// a ConfigError when neither side provides a required value.
package provider

import "strings"

// =============================================================================
// FORMAT - which request body family an upstream expects
// =============================================================================

// Format identifies the request body format an upstream endpoint expects.
type Format string

const (
	// FormatOpenAI is the flat OpenAI-compatible body.
	FormatOpenAI Format = "openai"
	// FormatDashScope is the nested Alibaba multimodal body.
	FormatDashScope Format = "dashscope"
	// FormatUnknown means no explicit choice; infer from the endpoint.
	FormatUnknown Format = ""
)

// FormatFromString converts a request/config field to a Format.
func FormatFromString(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return FormatOpenAI
	case "dashscope", "aliyun":
		return FormatDashScope
	default:
		return FormatUnknown
	}
}

// DetectFormat infers the body format from an endpoint URL. Kept for
// backward compatibility with clients that only send endpoint_url; an
// explicit Format always wins over this inference.
func DetectFormat(endpoint string) Format {
	if strings.Contains(endpoint, "ali") || strings.Contains(endpoint, "multimodal-generation") {
		return FormatDashScope
	}
	return FormatOpenAI
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOperation carries a chat-completion request's parameters.
type ChatOperation struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   *int // omitted from the body when nil

	// Caller overrides; empty means use the configured default.
	Endpoint string
	Model    string
	APIKey   string
}

// ImageOperation carries an image-generation request's parameters.
type ImageOperation struct {
	Prompt string
	Size   string
	N      int
	Format Format // explicit body format; FormatUnknown means infer

	Endpoint string
	Model    string
	APIKey   string
}

// AgentOperation carries a DashScope agent-completion request's parameters.
// The endpoint is always server-constructed from the configured app ID;
// callers can only override the credential.
type AgentOperation struct {
	Input      map[string]any
	Parameters map[string]any

	APIKey string
}

// Request is a fully resolved upstream HTTP request. It is not mutated
// after construction.
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// ConfigError reports a missing endpoint, credential or app ID after
// override resolution. Mapped to HTTP 400 at the gateway boundary.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// QUOTA
// =============================================================================

// DefaultDailyFreeLimit is the number of free-tier requests allowed per
// client IP per UTC day when the caller does not supply its own API key.
const DefaultDailyFreeLimit = 10

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultUpstreamTimeout bounds a single outbound provider call.
const DefaultUpstreamTimeout = 60 * time.Second

// DefaultServerPort is the listen port when PORT is unset.
const DefaultServerPort = 8000

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server. Generous because a single
// upstream call may take up to DefaultUpstreamTimeout.
const DefaultServerWriteTimeout = 2 * time.Minute

// MaxRequestBodySize is the maximum allowed inbound request body (2MB).
const MaxRequestBodySize = 2 * 1024 * 1024

// MaxErrorMessageLen limits upstream error text returned to callers.
const MaxErrorMessageLen = 200

// MaxErrorBodyLogLen limits upstream error bodies in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used as a fallback when no tokenizer is available for the model.
const TokenEstimateRatio = 4

// =============================================================================
// PROVIDER DEFAULTS
// =============================================================================

// DefaultChatEndpoint is the chat endpoint used when DEFAULT_CHAT_ENDPOINT
// is unset.
const DefaultChatEndpoint = "https://api.openai.com/v1"

// DefaultChatModel is the chat model used when the caller names none.
const DefaultChatModel = "qwen-plus"

// DefaultImageEndpoint is the image-generation endpoint used when
// DEFAULT_IMAGE_ENDPOINT is unset.
const DefaultImageEndpoint = "https://api.openai.com/v1/images/generations"

// DefaultImageModel is the image model used when the caller names none.
const DefaultImageModel = "dall-e-3"

// DefaultImageSize is the image size used when the caller names none.
const DefaultImageSize = "1024x1024"

// DefaultAgentBaseURL is the DashScope application API root. The full
// completion endpoint is always server-constructed from this and the app ID.
const DefaultAgentBaseURL = "https://dashscope.aliyuncs.com/api/v1"

// Request builders - turn an Operation plus configured defaults into the
// provider-specific HTTP request.
package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
)

const defaultTemperature = 0.7

// BuildChat constructs an OpenAI-compatible chat completion request.
// max_tokens is omitted entirely (not null) when the caller did not set it.
func BuildChat(op ChatOperation, d config.ChatProviderConfig) (*Request, error) {
	endpoint := firstNonEmpty(op.Endpoint, d.Endpoint)
	apiKey := firstNonEmpty(op.APIKey, d.APIKey)
	model := firstNonEmpty(op.Model, d.Model)

	if endpoint == "" {
		return nil, &ConfigError{Reason: "API endpoint URL is required"}
	}
	if apiKey == "" {
		return nil, &ConfigError{Reason: "API key is required"}
	}

	temperature := defaultTemperature
	if op.Temperature != nil {
		temperature = *op.Temperature
	}

	body, err := json.Marshal(map[string]any{
		"model":       model,
		"messages":    op.Messages,
		"temperature": temperature,
	})
	if err != nil {
		return nil, err
	}
	if op.MaxTokens != nil {
		if body, err = sjson.SetBytes(body, "max_tokens", *op.MaxTokens); err != nil {
			return nil, err
		}
	}

	return &Request{URL: endpoint, Headers: bearerHeaders(apiKey), Body: body}, nil
}

// BuildImage constructs an image-generation request. The body format is
// chosen by the resolved Format tag: the caller's explicit choice wins,
// then the configured default, then inference from the endpoint URL.
func BuildImage(op ImageOperation, d config.ImageProviderConfig) (*Request, error) {
	endpoint := firstNonEmpty(op.Endpoint, d.Endpoint)
	apiKey := firstNonEmpty(op.APIKey, d.APIKey)
	model := firstNonEmpty(op.Model, d.Model)
	size := firstNonEmpty(op.Size, d.Size)

	if endpoint == "" {
		return nil, &ConfigError{Reason: "API endpoint URL is required"}
	}
	if apiKey == "" {
		return nil, &ConfigError{Reason: "API key is required"}
	}

	n := op.N
	if n <= 0 {
		n = 1
	}

	format := op.Format
	if format == FormatUnknown {
		format = FormatFromString(d.Format)
	}
	if format == FormatUnknown {
		format = DetectFormat(endpoint)
	}

	var payload map[string]any
	if format == FormatDashScope {
		payload = map[string]any{
			"model": model,
			"input": map[string]any{
				"messages": []map[string]any{
					{
						"role":    "user",
						"content": []map[string]any{{"text": op.Prompt}},
					},
				},
			},
			"parameters": map[string]any{"size": size, "n": n},
		}
	} else {
		payload = map[string]any{
			"model":  model,
			"prompt": op.Prompt,
			"size":   size,
			"n":      n,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Request{URL: endpoint, Headers: bearerHeaders(apiKey), Body: body}, nil
}

// BuildAgent constructs a DashScope agent-completion request. The endpoint
// is derived from the configured base URL and app ID, never from the caller.
func BuildAgent(op AgentOperation, d config.AgentProviderConfig) (*Request, error) {
	apiKey := firstNonEmpty(op.APIKey, d.APIKey)
	if apiKey == "" {
		return nil, &ConfigError{Reason: "Agent API key is required"}
	}
	if d.AppID == "" {
		return nil, &ConfigError{Reason: "AGENT_APP_ID is not configured"}
	}

	parameters := op.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	body, err := json.Marshal(map[string]any{
		"input":      op.Input,
		"parameters": parameters,
		"debug":      map[string]any{},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/apps/%s/completion", strings.TrimRight(d.BaseURL, "/"), d.AppID)
	return &Request{URL: url, Headers: bearerHeaders(apiKey), Body: body}, nil
}

func bearerHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
)

func chatDefaults() config.ChatProviderConfig {
	return config.ChatProviderConfig{
		Endpoint: "https://api.openai.com/v1/chat/completions",
		Model:    "qwen-plus",
		APIKey:   "default-key",
	}
}

func imageDefaults() config.ImageProviderConfig {
	return config.ImageProviderConfig{
		Endpoint: "https://api.openai.com/v1/images/generations",
		Model:    "dall-e-3",
		Size:     "1024x1024",
		APIKey:   "default-key",
	}
}

func TestBuildChat_DefaultsAndHeaders(t *testing.T) {
	req, err := BuildChat(ChatOperation{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, chatDefaults())
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", req.URL)
	assert.Equal(t, "Bearer default-key", req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "qwen-plus", body.Get("model").String())
	assert.Equal(t, "hi", body.Get("messages.0.content").String())
	assert.InDelta(t, 0.7, body.Get("temperature").Float(), 0.0001)
	assert.False(t, body.Get("max_tokens").Exists(), "max_tokens omitted when unset")
}

func TestBuildChat_CallerOverridesWin(t *testing.T) {
	maxTokens := 256
	temp := 0.2
	req, err := BuildChat(ChatOperation{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Endpoint:    "https://example.com/v1/chat",
		Model:       "gpt-4",
		APIKey:      "caller-key",
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	}, chatDefaults())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/v1/chat", req.URL)
	assert.Equal(t, "Bearer caller-key", req.Headers["Authorization"])

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "gpt-4", body.Get("model").String())
	assert.Equal(t, int64(256), body.Get("max_tokens").Int())
	assert.InDelta(t, 0.2, body.Get("temperature").Float(), 0.0001)
}

func TestBuildChat_MissingEndpointOrKey(t *testing.T) {
	_, err := BuildChat(ChatOperation{}, config.ChatProviderConfig{APIKey: "k"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "endpoint")

	_, err = BuildChat(ChatOperation{}, config.ChatProviderConfig{Endpoint: "https://x"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "key")
}

func TestBuildImage_OpenAIFormat(t *testing.T) {
	req, err := BuildImage(ImageOperation{Prompt: "a cat", N: 2}, imageDefaults())
	require.NoError(t, err)

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "a cat", body.Get("prompt").String())
	assert.Equal(t, "1024x1024", body.Get("size").String())
	assert.Equal(t, int64(2), body.Get("n").Int())
	assert.False(t, body.Get("input").Exists())
}

func TestBuildImage_DashScopeFormatSniffedFromEndpoint(t *testing.T) {
	d := imageDefaults()
	d.Endpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

	req, err := BuildImage(ImageOperation{Prompt: "a cat"}, d)
	require.NoError(t, err)

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "user", body.Get("input.messages.0.role").String())
	assert.Equal(t, "a cat", body.Get("input.messages.0.content.0.text").String())
	assert.Equal(t, "1024x1024", body.Get("parameters.size").String())
	assert.Equal(t, int64(1), body.Get("parameters.n").Int(), "n defaults to 1")
	assert.False(t, body.Get("prompt").Exists())
}

func TestBuildImage_ExplicitFormatBeatsEndpointSniffing(t *testing.T) {
	// Endpoint looks like OpenAI but the caller pins dashscope.
	req, err := BuildImage(ImageOperation{Prompt: "a cat", Format: FormatDashScope}, imageDefaults())
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(req.Body, "input").Exists())

	// And the reverse: aliyun endpoint but openai format pinned.
	d := imageDefaults()
	d.Endpoint = "https://dashscope.aliyuncs.com/multimodal-generation"
	req, err = BuildImage(ImageOperation{Prompt: "a cat", Format: FormatOpenAI}, d)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(req.Body, "prompt").Exists())
}

func TestBuildAgent_ServerConstructedEndpoint(t *testing.T) {
	req, err := BuildAgent(AgentOperation{
		Input: map[string]any{"prompt": "help"},
	}, config.AgentProviderConfig{
		BaseURL: "https://dashscope.aliyuncs.com/api/v1/",
		AppID:   "app-123",
		APIKey:  "agent-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://dashscope.aliyuncs.com/api/v1/apps/app-123/completion", req.URL)

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "help", body.Get("input.prompt").String())
	assert.True(t, body.Get("parameters").IsObject(), "nil parameters become {}")
	assert.True(t, body.Get("debug").IsObject())
}

func TestBuildAgent_ConfigErrors(t *testing.T) {
	var cfgErr *ConfigError

	_, err := BuildAgent(AgentOperation{}, config.AgentProviderConfig{AppID: "app-123"})
	require.ErrorAs(t, err, &cfgErr)

	_, err = BuildAgent(AgentOperation{}, config.AgentProviderConfig{APIKey: "k"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "AGENT_APP_ID")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatDashScope, DetectFormat("https://dashscope.aliyuncs.com/x"))
	assert.Equal(t, FormatDashScope, DetectFormat("https://example.com/multimodal-generation"))
	assert.Equal(t, FormatOpenAI, DetectFormat("https://api.openai.com/v1/images/generations"))
}

func TestFormatFromString(t *testing.T) {
	assert.Equal(t, FormatOpenAI, FormatFromString("openai"))
	assert.Equal(t, FormatDashScope, FormatFromString("DashScope"))
	assert.Equal(t, FormatDashScope, FormatFromString("aliyun"))
	assert.Equal(t, FormatUnknown, FormatFromString(""))
	assert.Equal(t, FormatUnknown, FormatFromString("something-else"))
}

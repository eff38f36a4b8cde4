// Package normalize extracts a canonical "assistant output" from the
// arbitrarily-shaped JSON a provider returns.
//
// DESIGN: Providers disagree on where the assistant's text lives. Agent
// responses are probed by an ordered list of pure extraction strategies,
// composed first-match-wins; the order is part of the contract and must
// not be rearranged. Chat responses have a fixed shape and missing fields
// are a hard error. Image responses degrade to an empty URL list.
package normalize

import (
	"github.com/tidwall/gjson"
)

// Strategy probes one known location for the assistant's text.
// It reports false when the location is absent or not a plain string.
type Strategy func(gjson.Result) (string, bool)

// agentStrategies is the priority-ordered probe list for agent responses.
// The duplicated output.text probe at the end is deliberate: partially
// populated payloads have been observed where only the final re-check hits.
var agentStrategies = []Strategy{
	choicesMessageContent,
	outputText,
	outputChoicesContentText,
	topLevelText,
	outputText,
}

// choicesMessageContent reads the OpenAI-compatible shape:
// choices[0].message.content as a plain string.
func choicesMessageContent(r gjson.Result) (string, bool) {
	return asString(r.Get("choices.0.message.content"))
}

// outputText reads output.text as a plain string (DashScope text shape).
func outputText(r gjson.Result) (string, bool) {
	return asString(r.Get("output.text"))
}

// outputChoicesContentText reads output.choices[0].message.content as a
// list of items, taking the first item that exposes a text field.
func outputChoicesContentText(r gjson.Result) (string, bool) {
	content := r.Get("output.choices.0.message.content")
	if !content.IsArray() {
		return "", false
	}
	for _, item := range content.Array() {
		if text, ok := asString(item.Get("text")); ok {
			return text, true
		}
	}
	return "", false
}

// topLevelText reads a bare top-level text field.
func topLevelText(r gjson.Result) (string, bool) {
	return asString(r.Get("text"))
}

func asString(v gjson.Result) (string, bool) {
	if v.Type != gjson.String || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

// AgentResult is the normalized agent-completion output.
type AgentResult struct {
	Content string
	// Raw holds the full upstream JSON when no strategy matched, so the
	// caller can distinguish a fallback from a genuine answer. Nil when
	// extraction succeeded.
	Raw []byte
}

// Agent runs the strategy list over a raw agent response. It never fails:
// when no strategy matches, the entire raw payload is serialized as the
// content and also exposed via Raw.
func Agent(raw []byte) AgentResult {
	parsed := gjson.ParseBytes(raw)
	for _, probe := range agentStrategies {
		if text, ok := probe(parsed); ok {
			return AgentResult{Content: text}
		}
	}
	return AgentResult{Content: string(raw), Raw: raw}
}

// ChatResult is the normalized chat-completion output.
type ChatResult struct {
	Role    string
	Content string
	// Usage is the provider's usage block verbatim; "{}" when absent.
	Usage []byte
	// Model is the provider-reported model; empty when absent.
	Model string
}

// ShapeError reports a chat response missing the expected OpenAI shape.
// Mapped to 500 at the gateway boundary.
type ShapeError struct {
	Path string
}

func (e *ShapeError) Error() string {
	return "upstream response missing " + e.Path
}

// Chat extracts the fixed OpenAI-compatible chat shape. Unlike agent
// extraction there is no fallback: absence is a hard error.
func Chat(raw []byte) (*ChatResult, error) {
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if content.Type != gjson.String {
		return nil, &ShapeError{Path: "choices[0].message.content"}
	}

	usage := []byte("{}")
	if u := gjson.GetBytes(raw, "usage"); u.IsObject() {
		usage = []byte(u.Raw)
	}

	return &ChatResult{
		Role:    "assistant",
		Content: content.String(),
		Usage:   usage,
		Model:   gjson.GetBytes(raw, "model").String(),
	}, nil
}

// ImageURLs collects every output.choices[*].message.content[*].image URL
// in document order. A payload lacking the expected nesting yields an
// empty list, not an error.
func ImageURLs(raw []byte) []string {
	urls := []string{}
	choices := gjson.GetBytes(raw, "output.choices")
	if !choices.IsArray() {
		return urls
	}
	for _, choice := range choices.Array() {
		content := choice.Get("message.content")
		if !content.IsArray() {
			continue
		}
		for _, item := range content.Array() {
			if img := item.Get("image"); img.Type == gjson.String {
				urls = append(urls, img.String())
			}
		}
	}
	return urls
}

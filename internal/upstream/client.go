// Package upstream performs the outbound provider call and classifies
// failures.
//
// DESIGN: One synchronous POST per request with a fixed timeout, no retry.
// Failures fall into two classes surfaced as typed errors:
//   - TransportError: connect/DNS/timeout - the provider was never reached
//   - HTTPError:      provider answered with status >= 400
//
// Successful responses are returned as raw JSON bytes; a non-JSON success
// body is wrapped as {"raw_text": ...} rather than failing, since some
// upstreams return plain text on success.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
	"github.com/FrankDu1/psychologist-chatbot/internal/provider"
	"github.com/FrankDu1/psychologist-chatbot/internal/utils"
)

// TransportError wraps a network-level failure. Mapped to 502 at the
// gateway boundary.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx answer from the provider. The provider's status
// code is propagated to the caller with a truncated message.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// Client posts built requests to upstream providers.
type Client struct {
	http *http.Client
}

// NewClient creates a client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultUpstreamTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Do executes the request and returns the raw JSON response body.
func (c *Client) Do(ctx context.Context, req *provider.Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	log.Debug().
		Str("url", req.URL).
		Str("authorization", utils.MaskKey(req.Headers["Authorization"])).
		Int("body_bytes", len(req.Body)).
		Msg("forwarding request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL).Msg("upstream request failed")
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode >= 400 {
		msg := errorMessage(body)
		log.Error().
			Int("status", resp.StatusCode).
			Str("url", req.URL).
			Str("response", utils.Truncate(string(body), config.MaxErrorBodyLogLen)).
			Msg("upstream error response")
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	if !json.Valid(body) {
		// Some upstreams return non-JSON success bodies; wrap, don't fail.
		wrapped, werr := sjson.SetBytes([]byte(`{}`), "raw_text", string(body))
		if werr != nil {
			return nil, &TransportError{Err: werr}
		}
		return wrapped, nil
	}

	return body, nil
}

// errorMessage extracts error.message from a JSON error body, falling back
// to the raw text. Either way the result is truncated for caller-facing use.
func errorMessage(body []byte) string {
	msg := string(body)
	if m := gjson.GetBytes(body, "error.message"); m.Type == gjson.String {
		msg = m.String()
	}
	return utils.Truncate(msg, config.MaxErrorMessageLen)
}

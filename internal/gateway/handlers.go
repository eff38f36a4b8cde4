// Operation handlers - one per inbound API, all following the same flow:
// decode -> quota reserve -> build -> dispatch -> normalize -> respond,
// releasing the quota reservation on any failure after the reserve.
package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
	"github.com/FrankDu1/psychologist-chatbot/internal/monitoring"
	"github.com/FrankDu1/psychologist-chatbot/internal/normalize"
	"github.com/FrankDu1/psychologist-chatbot/internal/provider"
	"github.com/FrankDu1/psychologist-chatbot/internal/quota"
	"github.com/FrankDu1/psychologist-chatbot/internal/tokencount"
	"github.com/FrankDu1/psychologist-chatbot/internal/upstream"
	"github.com/FrankDu1/psychologist-chatbot/internal/utils"
)

// =============================================================================
// REQUEST / RESPONSE CONTRACTS
// =============================================================================

type chatRequest struct {
	Messages    []provider.Message `json:"messages"`
	Model       string             `json:"model"`
	EndpointURL string             `json:"endpoint_url"`
	APIKey      string             `json:"api_key"`
	Temperature *float64           `json:"temperature"`
	MaxTokens   *int               `json:"max_tokens"`
	// Stream is accepted for client compatibility but the gateway always
	// answers with a single buffered response.
	Stream bool `json:"stream"`
}

type imageRequest struct {
	Prompt      string `json:"prompt"`
	Size        string `json:"size"`
	N           int    `json:"n"`
	Model       string `json:"model"`
	EndpointURL string `json:"endpoint_url"`
	APIKey      string `json:"api_key"`
	// ProviderFormat pins the upstream body format ("openai", "dashscope"
	// or "aliyun"). Empty means infer from the endpoint URL.
	ProviderFormat string `json:"provider_format"`
}

type agentRequest struct {
	Input      map[string]any `json:"input"`
	Parameters map[string]any `json:"parameters"`
	APIKey     string         `json:"api_key"`
}

type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message assistantMessage `json:"message"`
	Usage   json.RawMessage  `json:"usage"`
	Model   string           `json:"model"`
}

type imageItem struct {
	URL string `json:"url"`
}

type imageResponse struct {
	Images []imageItem `json:"images"`
}

type agentResponse struct {
	Message assistantMessage `json:"message"`
	Raw     json.RawMessage  `json:"raw,omitempty"`
}

// =============================================================================
// HANDLERS
// =============================================================================

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	t, ok := g.begin(w, r, "chat")
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.reject(w, t, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		g.reject(w, t, http.StatusBadRequest, "messages is required")
		return
	}

	hasKey := req.APIKey != ""
	t.event.FreeTier = !hasKey
	if !g.reserve(w, t, hasKey) {
		return
	}

	op := provider.ChatOperation{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Endpoint:    req.EndpointURL,
		Model:       req.Model,
		APIKey:      req.APIKey,
	}
	upReq, err := provider.BuildChat(op, g.cfg.Providers.Chat)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	raw, err := g.client.Do(r.Context(), upReq)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	res, err := normalize.Chat(raw)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	model := res.Model
	if model == "" {
		model = req.Model
	}
	t.event.Model = model
	g.recordTokens(t, res.Usage, model, req.Messages)

	g.respond(w, t, http.StatusOK, chatResponse{
		Message: assistantMessage{Role: res.Role, Content: res.Content},
		Usage:   json.RawMessage(res.Usage),
		Model:   model,
	})
}

func (g *Gateway) handleImage(w http.ResponseWriter, r *http.Request) {
	t, ok := g.begin(w, r, "image")
	if !ok {
		return
	}

	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.reject(w, t, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		g.reject(w, t, http.StatusBadRequest, "prompt is required")
		return
	}

	hasKey := req.APIKey != ""
	t.event.FreeTier = !hasKey
	if !g.reserve(w, t, hasKey) {
		return
	}

	op := provider.ImageOperation{
		Prompt:   req.Prompt,
		Size:     req.Size,
		N:        req.N,
		Format:   provider.FormatFromString(req.ProviderFormat),
		Endpoint: req.EndpointURL,
		Model:    req.Model,
		APIKey:   req.APIKey,
	}
	upReq, err := provider.BuildImage(op, g.cfg.Providers.Image)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	raw, err := g.client.Do(r.Context(), upReq)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	urls := normalize.ImageURLs(raw)
	log.Info().Int("count", len(urls)).Msg("image generation complete")

	items := make([]imageItem, 0, len(urls))
	for _, u := range urls {
		items = append(items, imageItem{URL: u})
	}
	g.respond(w, t, http.StatusOK, imageResponse{Images: items})
}

func (g *Gateway) handleAgent(w http.ResponseWriter, r *http.Request) {
	t, ok := g.begin(w, r, "agent")
	if !ok {
		return
	}

	var req agentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.reject(w, t, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Input) == 0 {
		g.reject(w, t, http.StatusBadRequest, "input is required")
		return
	}

	hasKey := req.APIKey != ""
	t.event.FreeTier = !hasKey
	if !g.reserve(w, t, hasKey) {
		return
	}

	op := provider.AgentOperation{
		Input:      req.Input,
		Parameters: req.Parameters,
		APIKey:     req.APIKey,
	}
	upReq, err := provider.BuildAgent(op, g.cfg.Providers.Agent)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	raw, err := g.client.Do(r.Context(), upReq)
	if err != nil {
		g.fail(w, t, hasKey, err)
		return
	}

	res := normalize.Agent(raw)
	resp := agentResponse{
		Message: assistantMessage{Role: "assistant", Content: res.Content},
	}
	if res.Raw != nil {
		resp.Raw = json.RawMessage(res.Raw)
	}
	g.respond(w, t, http.StatusOK, resp)
}

// =============================================================================
// SHARED REQUEST FLOW
// =============================================================================

// requestTrace carries the telemetry event being assembled for one request.
type requestTrace struct {
	event monitoring.RequestEvent
	start time.Time
}

// begin handles the method check and starts the request trace.
func (g *Gateway) begin(w http.ResponseWriter, r *http.Request, operation string) (*requestTrace, bool) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	requestID := g.getRequestID(r)
	w.Header().Set("X-Request-ID", requestID)

	return &requestTrace{
		start: time.Now(),
		event: monitoring.RequestEvent{
			RequestID: requestID,
			Timestamp: time.Now(),
			Method:    r.Method,
			Path:      r.URL.Path,
			ClientIP:  clientIP(r),
			Operation: operation,
			FreeTier:  true,
		},
	}, true
}

// reserve consumes one unit of quota, answering 429 when the ledger rejects.
func (g *Gateway) reserve(w http.ResponseWriter, t *requestTrace, hasKey bool) bool {
	dec, ok := g.ledger.Reserve(t.event.ClientIP, hasKey)
	t.event.QuotaUsed = dec.Used
	t.event.QuotaLimit = dec.Limit
	if ok {
		return true
	}

	g.metrics.RecordQuotaRejection()
	log.Warn().
		Str("client_ip", t.event.ClientIP).
		Int("used", dec.Used).
		Int("limit", dec.Limit).
		Msg("free quota exceeded")
	g.reject(w, t, http.StatusTooManyRequests, quotaExceededMessage(dec.Used, dec.Limit))
	return false
}

// reject answers an error that did not consume quota.
func (g *Gateway) reject(w http.ResponseWriter, t *requestTrace, status int, message string) {
	writeError(w, message, status)
	g.finish(t, status, false, message)
}

// fail releases the quota reservation and answers a classified error.
// Only called after a successful reserve.
func (g *Gateway) fail(w http.ResponseWriter, t *requestTrace, hasKey bool, err error) {
	g.ledger.Release(t.event.ClientIP, hasKey)
	if !hasKey && t.event.QuotaUsed > 0 {
		t.event.QuotaUsed--
	}

	var httpErr *upstream.HTTPError
	var trErr *upstream.TransportError
	switch {
	case errors.As(err, &httpErr):
		t.event.UpstreamStatus = httpErr.StatusCode
		g.metrics.RecordUpstreamFailure()
	case errors.As(err, &trErr):
		g.metrics.RecordUpstreamFailure()
	}

	status, message := classifyError(err)
	writeError(w, message, status)
	g.finish(t, status, false, message)
}

// respond writes the success payload and completes the trace.
func (g *Gateway) respond(w http.ResponseWriter, t *requestTrace, status int, payload any) {
	writeJSON(w, status, payload)
	g.finish(t, status, true, "")
}

// finish stamps the trace and hands it to metrics and telemetry.
func (g *Gateway) finish(t *requestTrace, status int, success bool, errMsg string) {
	t.event.StatusCode = status
	t.event.Success = success
	t.event.Error = errMsg
	t.event.LatencyMs = time.Since(t.start).Milliseconds()

	g.metrics.RecordRequest(success)
	g.tracker.RecordRequest(&t.event)
}

// recordTokens extracts provider-reported usage for metrics, estimating the
// prompt side locally when the provider reported nothing.
func (g *Gateway) recordTokens(t *requestTrace, usage []byte, model string, messages []provider.Message) {
	in := int(gjson.GetBytes(usage, "prompt_tokens").Int())
	out := int(gjson.GetBytes(usage, "completion_tokens").Int())
	t.event.InputTokens = in
	t.event.OutputTokens = out

	if in == 0 && out == 0 {
		t.event.TokensEstimate = tokencount.Estimate(model, messages)
		return
	}
	g.metrics.RecordAPIUsage(in, out)
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// decodeJSON reads and decodes a bounded JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// writeJSON writes a JSON response without HTML escaping.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := utils.MarshalNoEscape(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		writeError(w, "internal serialization error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// quotaSnapshot is used by GET /api/usage.
func (g *Gateway) quotaSnapshot(r *http.Request) quota.Decision {
	return g.ledger.Usage(clientIP(r))
}

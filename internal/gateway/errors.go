package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/FrankDu1/psychologist-chatbot/internal/normalize"
	"github.com/FrankDu1/psychologist-chatbot/internal/provider"
	"github.com/FrankDu1/psychologist-chatbot/internal/upstream"
	"github.com/FrankDu1/psychologist-chatbot/internal/utils"
)

// errorEnvelope is the JSON error body returned by all endpoints.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body, err := utils.MarshalNoEscape(errorEnvelope{
		Error: errorDetail{Message: message, Type: "gateway_error"},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal error response")
		return
	}
	_, _ = w.Write(body)
}

// classifyError maps pipeline errors to an HTTP status and client message.
// Provider HTTP errors pass their status through; transport failures are
// 502; malformed upstream shapes are 500.
func classifyError(err error) (int, string) {
	var cfgErr *provider.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest, cfgErr.Reason
	}

	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, "API request failed / API请求失败: " + httpErr.Message
	}

	var trErr *upstream.TransportError
	if errors.As(err, &trErr) {
		return http.StatusBadGateway, "Upstream request failed / 上游请求失败: " + trErr.Err.Error()
	}

	var shapeErr *normalize.ShapeError
	if errors.As(err, &shapeErr) {
		return http.StatusInternalServerError, shapeErr.Error()
	}

	return http.StatusInternalServerError, "Request failed / 请求失败: " + err.Error()
}

// quotaExceededMessage builds the bilingual 429 message shown to free-tier
// callers who exhaust the daily allowance.
func quotaExceededMessage(used, limit int) string {
	return fmt.Sprintf(
		"Daily free quota exceeded (%d/%d). Please provide your own API key. / 每日免费配额已用完 (%d/%d)，请输入自己的 API Key。",
		used, limit, used, limit,
	)
}
